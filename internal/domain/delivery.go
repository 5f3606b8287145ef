package domain

import "time"

type DeliveryStatus string

const (
	DeliveryPending    DeliveryStatus = "pending"
	DeliveryDelivered  DeliveryStatus = "delivered"
	DeliveryIncomplete DeliveryStatus = "incomplete"
)

type Delivery struct {
	ID        string         `json:"id"`
	Client    string         `json:"client" validate:"required"`
	Phone     string         `json:"phone"`
	When      string         `json:"when"`
	Where     string         `json:"where" validate:"required"`
	Notes     string         `json:"notes"`
	Items     []Item         `json:"items" validate:"dive"`
	Seller    string         `json:"seller"`
	Ticket    string         `json:"ticket"`
	TicketImg *string        `json:"ticketImg,omitempty"`
	Status    DeliveryStatus `json:"status" validate:"oneof=pending delivered incomplete"`
	Branch    string         `json:"branch" validate:"required"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt *time.Time     `json:"updatedAt,omitempty"`
}

func (d *Delivery) RecordID() string       { return d.ID }
func (d *Delivery) Collection() Collection { return CollectionDeliveries }
func (d *Delivery) Created() time.Time     { return d.CreatedAt }
func (d *Delivery) BranchTag() string      { return d.Branch }

func (d *Delivery) normalize() {
	if d.Status == "" {
		d.Status = DeliveryPending
	}
}

type CreateDeliveryRequest struct {
	Client string `json:"client" validate:"required"`
	Phone  string `json:"phone"`
	When   string `json:"when"`
	Where  string `json:"where" validate:"required"`
	Notes  string `json:"notes"`
	Items  []Item `json:"items" validate:"dive"`
	Seller string `json:"seller"`
	Ticket string `json:"ticket"`
	Branch string `json:"branch" validate:"required"`
	// SubmissionKey identifies one press of the save control.
	SubmissionKey string `json:"submissionKey"`
}

type UpdateDeliveryRequest struct {
	Client *string `json:"client" validate:"omitempty,min=1"`
	Phone  *string `json:"phone"`
	When   *string `json:"when"`
	Where  *string `json:"where" validate:"omitempty,min=1"`
	Notes  *string `json:"notes"`
	Items  *[]Item `json:"items" validate:"omitempty,dive"`
	Seller *string `json:"seller"`
	Ticket *string `json:"ticket"`
}

type SetDeliveryStatusRequest struct {
	Status DeliveryStatus `json:"status" validate:"required,oneof=pending delivered incomplete"`
}
