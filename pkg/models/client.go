package models

import "time"

// Client is one customer identity row. Contact and address fields are
// nullable; a merge fills blank fields on the surviving record from its
// duplicates without overwriting values that are already set.
type Client struct {
	ID        string    `db:"id" json:"id"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Address   *string   `db:"address" json:"address,omitempty"`
	City      *string   `db:"city" json:"city,omitempty"`
	State     *string   `db:"state" json:"state,omitempty"`
	Zip       *string   `db:"zip" json:"zip,omitempty"`
	Country   *string   `db:"country" json:"country,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// EmailValue returns the email or "" when null.
func (c *Client) EmailValue() string {
	if c.Email == nil {
		return ""
	}
	return *c.Email
}

// PhoneValue returns the phone or "" when null.
func (c *Client) PhoneValue() string {
	if c.Phone == nil {
		return ""
	}
	return *c.Phone
}

// ClientContact is the projection the duplicate grouper works from.
type ClientContact struct {
	ID        string    `db:"id" json:"id"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
