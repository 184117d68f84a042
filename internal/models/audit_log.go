package models

// AuditLog records user and pipeline operations that change portfolio data.
type AuditLog struct {
	Base
	UserID       string `gorm:"type:varchar(64);index" json:"user_id"` // Empty for pipeline-initiated changes
	Action       string `gorm:"not null" json:"action"`
	ResourceType string `gorm:"not null" json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	IPAddress    string `json:"ip_address"`
	Changes      string `json:"changes,omitempty"`
}
