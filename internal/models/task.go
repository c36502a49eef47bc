// Package modelsはTaskとUserを定義します。
package models

import (
	"bytes"
	"fmt"
	"time"
)

// DateLayout は due_date のJSON表現です。
const DateLayout = "2006-01-02"

// Date は時刻を持たない日付です。JSONでは "YYYY-MM-DD" になります。
type Date struct {
	time.Time
}

// NewDate は年月日からDateを作ります。
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate は "YYYY-MM-DD" を解析します。
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

// UnmarshalJSON は "YYYY-MM-DD" に加え、RFC3339形式の日時も受け付けます。
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if t, err := time.Parse(DateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q", s)
	}
	y, m, day := t.Date()
	*d = NewDate(y, m, day)
	return nil
}

// Task はタスクのデータベース構造体を表します。
type Task struct {
	ID          int       `json:"id"`          // 主キー
	Title       string    `json:"title"`       // タスクのタイトル（必須）
	Description *string   `json:"description"` // 任意
	DueDate     *Date     `json:"due_date"`    // 任意
	Completed   bool      `json:"completed"`   // 完了状態
	CreatedAt   time.Time `json:"created_at"`  // 作成日時
	UpdatedAt   time.Time `json:"updated_at"`  // 更新日時 (変更のたびに更新)
	UserID      int       `json:"user_id"`     // 所有ユーザー
}

// TaskInput はタスク作成リクエストです。ユーザーが編集できる項目のみを持ちます。
type TaskInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	DueDate     *Date   `json:"due_date,omitempty"`
	Completed   bool    `json:"completed"`
}

// TaskUpdate はタスク更新リクエストです。nilの項目は変更しません。
type TaskUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	DueDate     *Date   `json:"due_date,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// Apply は設定された項目だけをtに反映します。
func (u TaskUpdate) Apply(t *Task) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = u.Description
	}
	if u.DueDate != nil {
		t.DueDate = u.DueDate
	}
	if u.Completed != nil {
		t.Completed = *u.Completed
	}
}
