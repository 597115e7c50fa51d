package model

import "time"

// Job 后台任务（DB 队列），至少一次投递。
// 续传状态全部放在 payload 里，worker 本身无状态。
type Job struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Kind      string `gorm:"type:varchar(32);index:idx_job_kind;not null"`
	Payload   string `gorm:"type:text;not null"`
	Status    string `gorm:"type:varchar(16);index:idx_job_status_run;not null"`
	Attempts  int    `gorm:"not null;default:0"`
	RunAt     time.Time `gorm:"index:idx_job_status_run"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (Job) TableName() string { return "jobs" }

// 任务状态流转：pending -> processing -> done；失败回到 pending 重投，超过最大尝试数进入 dead。
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusDone       = "done"
	JobStatusDead       = "dead"
)

// 任务类型
const (
	JobKindNewMessage   = "new_message"
	JobKindFollowChange = "follow_change"
)
