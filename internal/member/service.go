// Package member は部員管理のドメインロジックを提供する。
package member

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/clubdesk/internal/model"
	"github.com/hitoshi/clubdesk/internal/repository"
)

// MaskMemberID は部員番号の先頭を伏せた表示用文字列を返す。
// 在室者一覧など、他の部員からも見える画面で使用する（例: "**3456"）。
// 6桁でない入力はそのまま返す。
func MaskMemberID(memberID string) string {
	if len(memberID) != 6 {
		return memberID
	}
	return strings.Repeat("*", 2) + memberID[2:]
}

// Service は部員管理のサービス層。
type Service struct {
	memberRepo repository.MemberRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(memberRepo repository.MemberRepository) *Service {
	return &Service{memberRepo: memberRepo}
}

// Get は指定部員番号の部員を取得する。
func (s *Service) Get(ctx context.Context, memberID string) (*model.Member, error) {
	member, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("部員の取得に失敗しました: %w", err)
	}
	if member == nil {
		return nil, model.NewMemberNotFoundError(memberID)
	}
	return member, nil
}

// List は全部員を部員番号昇順で返す。管理者向けの名簿表示に使用する。
func (s *Service) List(ctx context.Context) ([]*model.Member, error) {
	members, err := s.memberRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("部員一覧の取得に失敗しました: %w", err)
	}
	return members, nil
}
