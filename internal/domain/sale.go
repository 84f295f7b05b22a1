package domain

import "time"

const (
	ChannelRetail    = "retail"
	ChannelWholesale = "wholesale"
)

// Sale is one subscription sale. Retail and wholesale rows share the table
// and are told apart by Channel.
//
// DurationMonths is the fixed contract length. RenewMonths is the recurring
// renewal cadence inside that contract; 0 means a one-off sale with no
// intermediate renewals. ExpiredDate, when nil, is derived as purchased date
// plus the duration.
type Sale struct {
	ID             uint       `gorm:"primaryKey" json:"sale_id"`
	Channel        string     `gorm:"size:16;index;not null;default:retail" json:"sale_type"`
	Product        string     `gorm:"size:255;not null" json:"sale_product"`
	DurationMonths int        `gorm:"not null" json:"duration"`
	RenewMonths    int        `gorm:"not null;default:0" json:"renew"`
	Customer       string     `gorm:"size:255;not null" json:"customer"`
	Email          *string    `gorm:"size:255" json:"email"`
	PurchasedDate  time.Time  `gorm:"type:date;index;not null" json:"purchased_date"`
	ExpiredDate    *time.Time `gorm:"type:date;index" json:"expired_date"`
	Manager        *string    `gorm:"size:255" json:"manager"`
	Note           *string    `gorm:"type:text" json:"note"`
	Price          float64    `gorm:"type:decimal(10,2);not null" json:"price"`
	Profit         float64    `gorm:"type:decimal(10,2);not null" json:"profit"`
	CreatedAt      time.Time  `json:"-"`
	UpdatedAt      time.Time  `json:"-"`
}

// AllowedRenewMonths mirrors the cadences the sale form offers.
var AllowedRenewMonths = []int{0, 1, 2, 3, 4, 5, 6, 12}

func RenewMonthsAllowed(n int) bool {
	for _, v := range AllowedRenewMonths {
		if n == v {
			return true
		}
	}
	return false
}

func KnownChannel(ch string) bool {
	return ch == ChannelRetail || ch == ChannelWholesale
}
