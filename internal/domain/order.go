package domain

import "time"

type OrderType string

const (
	OrderInternalToCenter OrderType = "internal_to_center"
	OrderInternalToBranch OrderType = "internal_to_branch"
	OrderDistributor      OrderType = "distributor"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderSent      OrderStatus = "sent"
	OrderReceived  OrderStatus = "received"
	OrderCancelled OrderStatus = "cancelled"
)

// Item is one line of an order or delivery. Amount is free text ("2 bolsas").
type Item struct {
	Name   string `json:"name" validate:"required"`
	Amount string `json:"amount"`
}

type Order struct {
	ID              string      `json:"id"`
	Requester       string      `json:"requester"`
	Type            OrderType   `json:"type" validate:"oneof=internal_to_center internal_to_branch distributor"`
	DistributorName *string     `json:"distributorName"`
	Items           []Item      `json:"items" validate:"dive"`
	Notes           string      `json:"notes"`
	Branch          string      `json:"branch" validate:"required"`
	Status          OrderStatus `json:"status"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       *time.Time  `json:"updatedAt,omitempty"`
}

func (o *Order) RecordID() string       { return o.ID }
func (o *Order) Collection() Collection { return CollectionOrders }
func (o *Order) Created() time.Time     { return o.CreatedAt }
func (o *Order) BranchTag() string      { return o.Branch }

type CreateOrderRequest struct {
	Requester       string    `json:"requester" validate:"required"`
	Type            OrderType `json:"type" validate:"required,oneof=internal_to_center internal_to_branch distributor"`
	DistributorName string    `json:"distributorName" validate:"required_if=Type distributor"`
	Items           []Item    `json:"items" validate:"required,min=1,dive"`
	Notes           string    `json:"notes"`
	Branch          string    `json:"branch" validate:"required"`
}

type UpdateOrderRequest struct {
	Requester *string `json:"requester" validate:"omitempty,min=1"`
	Items     *[]Item `json:"items" validate:"omitempty,min=1,dive"`
	Notes     *string `json:"notes"`
}

type SetOrderStatusRequest struct {
	Status OrderStatus `json:"status" validate:"required,oneof=pending sent received cancelled"`
}
