package model

import (
	"time"
)

type FileStatus string

const (
	FileStatusPending    FileStatus = "Pendiente"
	FileStatusProcessing FileStatus = "Procesando"
	FileStatusProcessed  FileStatus = "Procesado"
	FileStatusError      FileStatus = "Error"
)

// ScheduledVisit is owned by the upstream scheduling service. This
// service never creates or deletes rows, it only reads them through the
// client association below.
type ScheduledVisit struct {
	ID        string    `gorm:"type:varchar(36);primary_key"`
	SellerID  string    `gorm:"type:varchar(36);not null"`
	Date      time.Time `gorm:"type:date;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ScheduledVisit) TableName() string {
	return "scheduled_visits"
}

// ScheduledVisitClient is the ledger row for one client visit. The
// processing pipeline mutates only FileStatus, FilenameProcessed and
// FilenameURLProcessed.
type ScheduledVisitClient struct {
	ID                   int             `gorm:"primary_key;autoIncrement"`
	VisitID              string          `gorm:"type:varchar(36);not null;index"`
	Visit                *ScheduledVisit `gorm:"foreignKey:VisitID"`
	ClientID             string          `gorm:"type:varchar(36);not null"`
	Status               string          `gorm:"type:varchar(50);not null"`
	Find                 string          `gorm:"type:text"`
	Filename             string          `gorm:"type:varchar(255)"`
	FilenameURL          string          `gorm:"column:filename_url;type:text"`
	FileStatus           FileStatus      `gorm:"type:varchar(50)"`
	FilenameProcessed    string          `gorm:"type:varchar(255)"`
	FilenameURLProcessed string          `gorm:"column:filename_url_processed;type:text"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (ScheduledVisitClient) TableName() string {
	return "scheduled_visit_clients"
}

// HasSourceVideo reports whether the upstream uploader attached a raw
// video to this visit. Rows without one cannot be processed.
func (c *ScheduledVisitClient) HasSourceVideo() bool {
	return c.Filename != "" && c.FilenameURL != ""
}
