// Package domain holds the lead entity and its enumerated attributes.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ScoreMin and ScoreMax bound every score field.
const (
	ScoreMin = 0
	ScoreMax = 110
)

// Origin is where a lead came from.
type Origin string

const (
	OriginInstagram Origin = "instagram"
	OriginFacebook  Origin = "facebook"
	OriginWhatsApp  Origin = "whatsapp"
	OriginWebsite   Origin = "website"
	OriginReferral  Origin = "referral"
	OriginGoogle    Origin = "google"
	OriginEvent     Origin = "event"
	OriginColdCall  Origin = "cold_call"
	OriginOther     Origin = "other"
)

// Temperature is the qualification heat of a lead.
type Temperature string

const (
	TemperatureCold Temperature = "cold"
	TemperatureWarm Temperature = "warm"
	TemperatureHot  Temperature = "hot"
)

// Lead is the identity and qualification record of a prospect.
// Phone and Email are soft identity keys: used for matching, never unique.
type Lead struct {
	ID             uuid.UUID   `json:"id"`
	Name           string      `json:"name"`
	Phone          string      `json:"phone"`
	Email          string      `json:"email"`
	Origin         Origin      `json:"origin"`
	Temperature    Temperature `json:"temperature"`
	Company        string      `json:"company"`
	Instagram      string      `json:"instagram"`
	Website        string      `json:"website"`
	City           string      `json:"city"`
	Notes          string      `json:"notes"`
	Followers      int         `json:"followers"`
	MonthlyRevenue float64     `json:"monthlyRevenue"`
	LeadScore      int         `json:"leadScore"`
	LeadValue      int         `json:"leadValue"`
	PotentialValue float64     `json:"potentialValue"`
	HasWebsite     bool        `json:"hasWebsite"`
	IsCustomer     bool        `json:"isCustomer"`
	WhatsAppOptIn  bool        `json:"whatsappOptIn"`
	Tags           []string    `json:"tags"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}
