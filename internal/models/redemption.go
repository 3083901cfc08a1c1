package models

import "time"

// Telco identifies the card issuer/network. The provider performs the
// authoritative validation; these are the values it currently accepts.
type Telco = string

const (
	TelcoViettel   Telco = "VTT"
	TelcoVinaphone Telco = "VNP"
	TelcoMobifone  Telco = "VMS"
)

type RedemptionStatus string

const (
	RedemptionPending RedemptionStatus = "pending"
	RedemptionSuccess RedemptionStatus = "success"
	RedemptionWrong   RedemptionStatus = "wrong"
)

// Terminal reports whether no further legitimate transition is expected.
func (s RedemptionStatus) Terminal() bool {
	return s == RedemptionSuccess || s == RedemptionWrong
}

// Redemption is a single card submitted for charging. RequestID is the
// only lookup key; the provider echoes it back in its callback.
type Redemption struct {
	RequestID       string           `json:"request_id"`
	Username        string           `json:"username"`
	Telco           Telco            `json:"telco"`
	DeclaredAmount  int64            `json:"declared_amount"`
	Serial          string           `json:"-"`
	Pin             string           `json:"-"`
	Status          RedemptionStatus `json:"status"`
	ConfirmedAmount int64            `json:"confirmed_amount"`
	CreatedAt       time.Time        `json:"created_at"`
}

// DisplayAmount is the value shown to a polling client: the provider-
// confirmed value once one exists, the declared face value until then.
func (r Redemption) DisplayAmount() int64 {
	if r.ConfirmedAmount > 0 {
		return r.ConfirmedAmount
	}
	return r.DeclaredAmount
}
