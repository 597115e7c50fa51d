package cursor

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// Cursor 表示有序扫描中的续传位置：最后一条记录的 (创建时间, id)。
// (created_at, id) 构成全序，翻页不重不漏。
type Cursor struct {
	T  int64  `json:"t"` // unix nano
	ID string `json:"k"`
}

func (c Cursor) IsZero() bool { return c.T == 0 && c.ID == "" }

// Time 返回游标位置的创建时间
func (c Cursor) Time() time.Time { return time.Unix(0, c.T) }

// Encode 生成不透明 token（URL-safe base64 JSON）
func Encode(t time.Time, id string) string {
	b, _ := json.Marshal(Cursor{T: t.UnixNano(), ID: id})
	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode 解析 token。非法或过期的 token 不报错，视为从头开始。
func Decode(token string) Cursor {
	if token == "" {
		return Cursor{}
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}
	}
	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return Cursor{}
	}
	return c
}

// ClampLimit 交互式读取的页大小：越界取 25
func ClampLimit(n int) int {
	if n < 1 || n > 25 {
		return 25
	}
	return n
}

// ClampPageSize 后台任务的页大小：默认 25，上限 100
func ClampPageSize(n int) int {
	if n < 1 || n > 100 {
		return 25
	}
	return n
}
