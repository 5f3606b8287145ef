package service

import (
	"context"
	"strings"

	"branchdesk-server/internal/domain"
	"branchdesk-server/pkg/sanitize"
)

type OrderService struct {
	data *DataService
}

func NewOrderService(data *DataService) *OrderService {
	return &OrderService{data: data}
}

func (s *OrderService) Create(ctx context.Context, req *domain.CreateOrderRequest) (string, error) {
	req.DistributorName = strings.TrimSpace(req.DistributorName)
	if err := validateRequest(req); err != nil {
		return "", err
	}

	var distributor interface{}
	if req.Type == domain.OrderDistributor {
		distributor = req.DistributorName
	}

	return s.data.Add(ctx, domain.CollectionOrders, sanitize.Fields{
		"requester":       req.Requester,
		"type":            req.Type,
		"distributorName": distributor,
		"items":           req.Items,
		"notes":           req.Notes,
		"branch":          req.Branch,
		"status":          domain.OrderPending,
	})
}

func (s *OrderService) Update(ctx context.Context, id string, req *domain.UpdateOrderRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}

	return s.data.Update(ctx, domain.CollectionOrders, id, sanitize.Fields{
		"requester": sanitize.Optional(req.Requester),
		"items":     sanitize.Optional(req.Items),
		"notes":     sanitize.Optional(req.Notes),
	})
}

func (s *OrderService) SetStatus(ctx context.Context, id string, req *domain.SetOrderStatusRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}

	return s.data.Update(ctx, domain.CollectionOrders, id, sanitize.Fields{
		"status": req.Status,
	})
}

func (s *OrderService) Delete(ctx context.Context, id string) error {
	return s.data.Delete(ctx, domain.CollectionOrders, id)
}
