// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"time"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, presence, club, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAlreadyCheckedIn     = "ALREADY_CHECKED_IN"
	ErrCodeNotCheckedIn         = "NOT_CHECKED_IN"
	ErrCodeMemberNotFound       = "MEMBER_NOT_FOUND"
	ErrCodeDuplicateMemberID    = "DUPLICATE_MEMBER_ID"
	ErrCodeDuplicateEmail       = "DUPLICATE_EMAIL"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeInvalidMemberID      = "INVALID_MEMBER_ID"
	ErrCodeAnnouncementNotFound = "ANNOUNCEMENT_NOT_FOUND"
	ErrCodeEventNotFound        = "EVENT_NOT_FOUND"
	ErrCodeEventFull            = "EVENT_FULL"
	ErrCodeDuplicateSignup      = "DUPLICATE_SIGNUP"
	ErrCodeSignupNotFound       = "SIGNUP_NOT_FOUND"
	ErrCodeServiceLogNotFound   = "SERVICE_LOG_NOT_FOUND"
	ErrCodeDuplicateServiceLog  = "DUPLICATE_SERVICE_LOG"
	ErrCodeInvalidMonth         = "INVALID_MONTH"
	ErrCodeInvalidHours         = "INVALID_HOURS"
	ErrCodeProjectNotFound      = "PROJECT_NOT_FOUND"
	ErrCodeAlreadyReviewed      = "ALREADY_REVIEWED"
	ErrCodeInvalidReview        = "INVALID_REVIEW"
	ErrCodeRideNotFound         = "RIDE_NOT_FOUND"
	ErrCodeRideNotOpen          = "RIDE_NOT_OPEN"
	ErrCodeNoSeatsLeft          = "NO_SEATS_LEFT"
	ErrCodeDuplicateRide        = "DUPLICATE_RIDE"
)

// NewAlreadyCheckedInError はチェックイン済みエラーを生成する。
// 既存セッションの開始時刻をメッセージに含める。
func NewAlreadyCheckedInError(startedAt time.Time) *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyCheckedIn,
		Message:  fmt.Sprintf("すでにチェックイン済みです（開始時刻: %s）。", startedAt.Format("15:04:05")),
		Category: "presence",
		Action:   "チェックアウトしてから再度チェックインしてください。",
	}
}

// NewNotCheckedInError は未チェックインエラーを生成する。
func NewNotCheckedInError() *APIError {
	return &APIError{
		Code:     ErrCodeNotCheckedIn,
		Message:  "チェックインしていません。",
		Category: "presence",
		Action:   "先にチェックインしてください。",
	}
}

// NewMemberNotFoundError は部員が見つからない場合のエラーを生成する。
func NewMemberNotFoundError(memberID string) *APIError {
	return &APIError{
		Code:     ErrCodeMemberNotFound,
		Message:  fmt.Sprintf("指定された部員が見つかりません: %s", memberID),
		Category: "auth",
		Action:   "部員番号を確認してください。",
	}
}

// NewDuplicateMemberIDError は部員番号の重複登録エラーを生成する。
func NewDuplicateMemberIDError(memberID string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateMemberID,
		Message:  fmt.Sprintf("この部員番号はすでに登録されています: %s", memberID),
		Category: "validation",
		Action:   "登録済みの場合はログインしてください。",
	}
}

// NewDuplicateEmailError はメールアドレスの重複登録エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "このメールアドレスはすでに登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "部員番号またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInvalidMemberIDError は部員番号の形式エラーを生成する。
func NewInvalidMemberIDError(memberID string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMemberID,
		Message:  fmt.Sprintf("無効な部員番号です: %s", memberID),
		Category: "validation",
		Action:   "部員番号は6桁の数字で入力してください。",
	}
}

// NewAnnouncementNotFoundError はお知らせ未検出エラーを生成する。
func NewAnnouncementNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeAnnouncementNotFound,
		Message:  fmt.Sprintf("指定されたお知らせが見つかりません: %s", id),
		Category: "club",
		Action:   "お知らせIDを確認してください。",
	}
}

// NewEventNotFoundError はイベント未検出エラーを生成する。
func NewEventNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeEventNotFound,
		Message:  fmt.Sprintf("指定されたイベントが見つかりません: %s", id),
		Category: "club",
		Action:   "イベントIDを確認してください。",
	}
}

// NewEventFullError はイベント定員超過エラーを生成する。
func NewEventFullError() *APIError {
	return &APIError{
		Code:     ErrCodeEventFull,
		Message:  "このイベントは定員に達しています。",
		Category: "club",
		Action:   "他のイベントへの参加を検討してください。",
	}
}

// NewDuplicateSignupError は同一イベントへの重複申込エラーを生成する。
func NewDuplicateSignupError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateSignup,
		Message:  "このイベントにはすでに申し込み済みです。",
		Category: "club",
		Action:   "申込一覧を確認してください。",
	}
}

// NewSignupNotFoundError は申込未検出エラーを生成する。
func NewSignupNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeSignupNotFound,
		Message:  "このイベントへの申込が見つかりません。",
		Category: "club",
		Action:   "申込済みのイベントか確認してください。",
	}
}

// NewServiceLogNotFoundError は奉仕活動報告の未検出エラーを生成する。
func NewServiceLogNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeServiceLogNotFound,
		Message:  fmt.Sprintf("指定された活動報告が見つかりません: %s", id),
		Category: "club",
		Action:   "報告IDを確認してください。",
	}
}

// NewDuplicateServiceLogError は同一月の重複提出エラーを生成する。
func NewDuplicateServiceLogError(month string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateServiceLog,
		Message:  fmt.Sprintf("%s の活動報告はすでに提出済みです。", month),
		Category: "club",
		Action:   "提出済みの報告を確認してください。",
	}
}

// NewInvalidMonthError は月の形式エラーを生成する。
func NewInvalidMonthError(month string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMonth,
		Message:  fmt.Sprintf("無効な月の指定です: %s", month),
		Category: "validation",
		Action:   "月は YYYY-MM 形式で指定してください。",
	}
}

// NewInvalidHoursError は活動時間の値エラーを生成する。
func NewInvalidHoursError(hours float64) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidHours,
		Message:  fmt.Sprintf("無効な活動時間です: %.1f", hours),
		Category: "validation",
		Action:   "活動時間は0より大きく、1か月あたり200時間以下で入力してください。",
	}
}

// NewProjectNotFoundError は個人プロジェクトの未検出エラーを生成する。
func NewProjectNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeProjectNotFound,
		Message:  fmt.Sprintf("指定されたプロジェクトが見つかりません: %s", id),
		Category: "club",
		Action:   "プロジェクトIDを確認してください。",
	}
}

// NewAlreadyReviewedError はレビュー済み提出物への再レビューエラーを生成する。
func NewAlreadyReviewedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyReviewed,
		Message:  "この提出物はすでにレビュー済みです。",
		Category: "club",
		Action:   "レビュー結果を確認してください。",
	}
}

// NewInvalidReviewError は無効なレビュー結果エラーを生成する。
func NewInvalidReviewError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidReview,
		Message:  fmt.Sprintf("無効なレビュー結果です: %s", status),
		Category: "validation",
		Action:   "レビュー結果には approved または rejected を指定してください。",
	}
}

// NewRideNotFoundError は送迎リクエスト・オファーの未検出エラーを生成する。
func NewRideNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeRideNotFound,
		Message:  fmt.Sprintf("指定された送迎情報が見つかりません: %s", id),
		Category: "club",
		Action:   "送迎IDを確認してください。",
	}
}

// NewRideNotOpenError はマッチング不可能な送迎状態エラーを生成する。
func NewRideNotOpenError() *APIError {
	return &APIError{
		Code:     ErrCodeRideNotOpen,
		Message:  "この送迎はマッチング待ち状態ではありません。",
		Category: "club",
		Action:   "送迎の状態を確認してください。",
	}
}

// NewNoSeatsLeftError は座席数不足エラーを生成する。
func NewNoSeatsLeftError() *APIError {
	return &APIError{
		Code:     ErrCodeNoSeatsLeft,
		Message:  "このオファーには空き座席がありません。",
		Category: "club",
		Action:   "他のオファーとのマッチングを検討してください。",
	}
}

// NewDuplicateRideError は同一イベントへの送迎リクエスト・オファーの重複登録エラーを生成する。
func NewDuplicateRideError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateRide,
		Message:  "このイベントにはすでに送迎の登録があります。",
		Category: "club",
		Action:   "登録済みの送迎情報を確認してください。",
	}
}
