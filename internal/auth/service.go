package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/clubdesk/internal/model"
	"github.com/hitoshi/clubdesk/internal/repository"
)

// memberIDPattern は部員番号の形式（6桁の数字）。
var memberIDPattern = regexp.MustCompile(`^[0-9]{6}$`)

// RegisterInput は部員登録の入力。
type RegisterInput struct {
	MemberID string
	Name     string
	Email    string
	Password string
	Grade    int
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	memberRepo repository.MemberRepository
	tokens     *TokenManager
	now        func() time.Time
}

// NewService はServiceを生成する。
func NewService(memberRepo repository.MemberRepository, tokens *TokenManager) *Service {
	return &Service{
		memberRepo: memberRepo,
		tokens:     tokens,
		now:        time.Now,
	}
}

// Register は部員を登録し、セッショントークンを発行する。
// 部員番号は6桁の数字でなければならない。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*model.Member, string, error) {
	if !memberIDPattern.MatchString(input.MemberID) {
		return nil, "", model.NewInvalidMemberIDError(input.MemberID)
	}

	existing, err := s.memberRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, "", fmt.Errorf("部員の検索に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, "", model.NewDuplicateEmailError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := s.now()
	member := &model.Member{
		MemberID:     input.MemberID,
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         model.RoleMember,
		Grade:        input.Grade,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.memberRepo.Create(ctx, member)
	if errors.Is(err, repository.ErrDuplicateKey) {
		return nil, "", model.NewDuplicateMemberIDError(input.MemberID)
	}
	if err != nil {
		return nil, "", fmt.Errorf("部員の登録に失敗しました: %w", err)
	}

	token, err := s.tokens.Issue(member)
	if err != nil {
		return nil, "", fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}

	slog.Info("新規部員を登録しました",
		slog.String("member_id", member.MemberID),
		slog.Int("grade", member.Grade),
	)

	return member, token, nil
}

// Login は部員番号とパスワードを検証し、セッショントークンを発行する。
// 部員の存在有無とパスワード不一致は同じエラーとして返す。
func (s *Service) Login(ctx context.Context, memberID, password string) (*model.Member, string, error) {
	member, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, "", fmt.Errorf("部員の検索に失敗しました: %w", err)
	}
	if member == nil {
		return nil, "", model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password)); err != nil {
		return nil, "", model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(member)
	if err != nil {
		return nil, "", fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}

	slog.Info("部員がログインしました", slog.String("member_id", member.MemberID))

	return member, token, nil
}

// GetCurrentMember はトークンのクレームに対応する部員を取得する。
func (s *Service) GetCurrentMember(ctx context.Context, memberID string) (*model.Member, error) {
	member, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("部員の取得に失敗しました: %w", err)
	}
	if member == nil {
		return nil, model.NewMemberNotFoundError(memberID)
	}
	return member, nil
}
