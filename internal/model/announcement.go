// Package model はドメインモデルを定義する。
package model

import "time"

// Announcement は部員向けのお知らせを表す。
// Bodyは保存前にサニタイズ済みのHTMLを保持する。
type Announcement struct {
	ID        string
	Title     string
	Body      string
	AuthorID  string
	Pinned    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
