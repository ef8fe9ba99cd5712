package model

import "github.com/shopspring/decimal"

// DefaultCommissionRate is applied when no active setting exists.
var DefaultCommissionRate = decimal.NewFromInt(5)

// CommissionSetting is a percentage rate. Rows are never edited: a new
// active row supersedes the previous ones and the newest active row wins.
type CommissionSetting struct {
	BaseModel
	Rate      decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"rate"`
	Active    bool            `gorm:"not null;default:true;index" json:"active"`
	CreatedBy string          `gorm:"type:varchar(255)" json:"created_by"`
}

func (CommissionSetting) TableName() string {
	return "commission_settings"
}
