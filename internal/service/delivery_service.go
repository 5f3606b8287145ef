package service

import (
	"context"

	"branchdesk-server/internal/domain"
	"branchdesk-server/pkg/sanitize"

	"golang.org/x/sync/singleflight"
)

const ticketFolder = "tickets"

type CreatedDelivery struct {
	ID        string  `json:"id"`
	TicketImg *string `json:"ticketImg,omitempty"`
}

type DeliveryService struct {
	data     *DataService
	inflight singleflight.Group
}

func NewDeliveryService(data *DataService) *DeliveryService {
	return &DeliveryService{data: data}
}

// Create saves a delivery. When a ticket photo is attached the save waits for
// the upload and stores its URL in ticketImg; without a photo ticketImg is
// left out of the document. Calls sharing a submission key while one is in
// flight share its result instead of saving twice.
func (s *DeliveryService) Create(ctx context.Context, req *domain.CreateDeliveryRequest, photo *Upload) (*CreatedDelivery, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if req.SubmissionKey == "" {
		return s.create(ctx, req, photo)
	}

	v, err, _ := s.inflight.Do(req.SubmissionKey, func() (interface{}, error) {
		return s.create(ctx, req, photo)
	})
	if err != nil {
		return nil, err
	}
	return v.(*CreatedDelivery), nil
}

func (s *DeliveryService) create(ctx context.Context, req *domain.CreateDeliveryRequest, photo *Upload) (*CreatedDelivery, error) {
	ticketImg := sanitize.Undefined
	var url *string

	if photo != nil {
		uploaded, err := s.data.UploadImage(ctx, *photo, ticketFolder)
		if err != nil {
			return nil, err
		}
		ticketImg = uploaded
		url = &uploaded
	}

	items := req.Items
	if items == nil {
		items = []domain.Item{}
	}

	id, err := s.data.Add(ctx, domain.CollectionDeliveries, sanitize.Fields{
		"client":    req.Client,
		"phone":     req.Phone,
		"when":      req.When,
		"where":     req.Where,
		"notes":     req.Notes,
		"items":     items,
		"seller":    req.Seller,
		"ticket":    req.Ticket,
		"ticketImg": ticketImg,
		"status":    domain.DeliveryPending,
		"branch":    req.Branch,
	})
	if err != nil {
		return nil, err
	}

	return &CreatedDelivery{ID: id, TicketImg: url}, nil
}

func (s *DeliveryService) Update(ctx context.Context, id string, req *domain.UpdateDeliveryRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}

	return s.data.Update(ctx, domain.CollectionDeliveries, id, sanitize.Fields{
		"client": sanitize.Optional(req.Client),
		"phone":  sanitize.Optional(req.Phone),
		"when":   sanitize.Optional(req.When),
		"where":  sanitize.Optional(req.Where),
		"notes":  sanitize.Optional(req.Notes),
		"items":  sanitize.Optional(req.Items),
		"seller": sanitize.Optional(req.Seller),
		"ticket": sanitize.Optional(req.Ticket),
	})
}

// AttachTicket uploads a photo for an existing delivery.
func (s *DeliveryService) AttachTicket(ctx context.Context, id string, photo Upload) (string, error) {
	url, err := s.data.UploadImage(ctx, photo, ticketFolder)
	if err != nil {
		return "", err
	}

	if err := s.data.Update(ctx, domain.CollectionDeliveries, id, sanitize.Fields{"ticketImg": url}); err != nil {
		return "", err
	}
	return url, nil
}

func (s *DeliveryService) SetStatus(ctx context.Context, id string, req *domain.SetDeliveryStatusRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}

	return s.data.Update(ctx, domain.CollectionDeliveries, id, sanitize.Fields{
		"status": req.Status,
	})
}

func (s *DeliveryService) Delete(ctx context.Context, id string) error {
	return s.data.Delete(ctx, domain.CollectionDeliveries, id)
}
