package service

import (
	"context"
	"errors"
	"testing"

	"branchdesk-server/internal/domain"
)

func TestOrderService_Create(t *testing.T) {
	items := []domain.Item{{Name: "Flour", Amount: "2 bags"}}

	tests := []struct {
		name            string
		req             *domain.CreateOrderRequest
		wantErr         bool
		wantDistributor *string
	}{
		{
			name: "internal order drops distributor",
			req: &domain.CreateOrderRequest{
				Requester:       "Ana",
				Type:            domain.OrderInternalToCenter,
				DistributorName: "leftover",
				Items:           items,
				Branch:          "ejemplares",
			},
		},
		{
			name: "distributor order keeps name",
			req: &domain.CreateOrderRequest{
				Requester:       "Ana",
				Type:            domain.OrderDistributor,
				DistributorName: "Molinos SA",
				Items:           items,
				Branch:          "centro",
			},
			wantDistributor: strPtr("Molinos SA"),
		},
		{
			name: "distributor order without name",
			req: &domain.CreateOrderRequest{
				Requester:       "Ana",
				Type:            domain.OrderDistributor,
				DistributorName: "   ",
				Items:           items,
				Branch:          "centro",
			},
			wantErr: true,
		},
		{
			name: "no items",
			req: &domain.CreateOrderRequest{
				Requester: "Ana",
				Type:      domain.OrderInternalToBranch,
				Branch:    "centro",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, _, _, _ := newTestData(t)
			service := NewOrderService(data)

			id, err := service.Create(context.Background(), tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Create() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if n := len(mustList(t, data, domain.CollectionOrders)); n != 0 {
					t.Errorf("stored %d orders after rejected create", n)
				}
				return
			}

			rec, _ := data.Get(context.Background(), domain.CollectionOrders, id)
			order := rec.(*domain.Order)
			if order.Status != domain.OrderPending {
				t.Errorf("Status = %q, want pending", order.Status)
			}
			switch {
			case tt.wantDistributor == nil && order.DistributorName != nil:
				t.Errorf("DistributorName = %q, want null", *order.DistributorName)
			case tt.wantDistributor != nil && (order.DistributorName == nil || *order.DistributorName != *tt.wantDistributor):
				t.Errorf("DistributorName = %v, want %q", order.DistributorName, *tt.wantDistributor)
			}
		})
	}
}

func TestOrderService_SetStatus(t *testing.T) {
	data, _, _, _ := newTestData(t)
	service := NewOrderService(data)
	ctx := context.Background()

	id, _ := service.Create(ctx, &domain.CreateOrderRequest{
		Requester: "Luis",
		Type:      domain.OrderInternalToBranch,
		Items:     []domain.Item{{Name: "Boxes"}},
		Branch:    "centro",
	})

	if err := service.SetStatus(ctx, id, &domain.SetOrderStatusRequest{Status: domain.OrderReceived}); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	rec, _ := data.Get(ctx, domain.CollectionOrders, id)
	if got := rec.(*domain.Order).Status; got != domain.OrderReceived {
		t.Errorf("Status = %q, want received", got)
	}

	err := service.SetStatus(ctx, id, &domain.SetOrderStatusRequest{Status: "lost"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("SetStatus(lost) error = %v, want ValidationError", err)
	}
}

func strPtr(s string) *string {
	return &s
}
