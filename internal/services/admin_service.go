package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"configurator/internal/models"
	"configurator/internal/repositories"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	unknownValue  = "Unknown"
	missingValue  = "N/A"
	lookupLimit   = 8
	exportPrefix  = "koenigsegg-orders"
	exportDateFmt = "2006-01-02"
)

// CSVHeader is the first row of an order export.
var CSVHeader = []string{"Order ID", "User Email", "Model", "Color", "Interior", "Price", "Payment Method", "Card Type", "Status", "Date"}

// AdminOrder is an order joined with its owner's display details.
type AdminOrder struct {
	models.Order
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`
}

// AdminFilter narrows the admin listing. Status "all" or empty disables the status filter.
type AdminFilter struct {
	Search string `query:"search"`
	Status string `query:"status"`
}

// AdminService reads every user's orders for the admin dashboard.
type AdminService struct {
	gateway  *OrderGateway
	users    repositories.UserRepository
	profiles repositories.ProfileRepository
	logger   *zap.Logger
}

// NewAdminService creates a new AdminService.
func NewAdminService(gateway *OrderGateway, users repositories.UserRepository, profiles repositories.ProfileRepository, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{gateway: gateway, users: users, profiles: profiles, logger: logger}
}

type identity struct {
	email string
	name  string
}

// ListAllOrders returns all orders, newest first, each enriched with the
// owner's email and name. A failed lookup degrades that field to "Unknown".
func (s *AdminService) ListAllOrders(ctx context.Context) ([]AdminOrder, error) {
	orders, err := s.gateway.ListOrders(ctx, models.AllOrders())
	if err != nil {
		return nil, err
	}

	var (
		mu   sync.Mutex
		seen = make(map[string]identity)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupLimit)
	for _, o := range orders {
		userID := o.UserID
		mu.Lock()
		_, dup := seen[userID]
		if !dup {
			seen[userID] = identity{email: unknownValue, name: unknownValue}
		}
		mu.Unlock()
		if dup {
			continue
		}
		g.Go(func() error {
			id := s.lookup(gctx, userID)
			mu.Lock()
			seen[userID] = id
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]AdminOrder, len(orders))
	for i, o := range orders {
		id := seen[o.UserID]
		out[i] = AdminOrder{Order: o, UserEmail: id.email, UserName: id.name}
	}
	return out, nil
}

func (s *AdminService) lookup(ctx context.Context, userID string) identity {
	id := identity{email: unknownValue, name: unknownValue}

	if u, err := s.users.GetByID(ctx, userID); err == nil && u.Email != "" {
		id.email = u.Email
	} else {
		if err != nil {
			s.logger.Debug("identity lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		if strings.Contains(userID, "@") {
			id.email = userID
		}
	}

	if p, err := s.profiles.GetByID(ctx, userID); err == nil && p.FullName != "" {
		id.name = p.FullName
	} else if err != nil {
		s.logger.Debug("profile lookup failed", zap.String("user_id", userID), zap.Error(err))
	}
	return id
}

// FilterOrders keeps orders whose model, email or ID contains the search term
// (case-insensitive) and whose status matches exactly.
func FilterOrders(orders []AdminOrder, f AdminFilter) []AdminOrder {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	status := strings.TrimSpace(f.Status)
	out := make([]AdminOrder, 0, len(orders))
	for _, o := range orders {
		if term != "" &&
			!strings.Contains(strings.ToLower(o.Model), term) &&
			!strings.Contains(strings.ToLower(o.UserEmail), term) &&
			!strings.Contains(strings.ToLower(o.ID), term) {
			continue
		}
		if status != "" && status != "all" && string(o.Status) != status {
			continue
		}
		out = append(out, o)
	}
	return out
}

// ExportCSV writes the header and one row per order.
func ExportCSV(w io.Writer, orders []AdminOrder) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, o := range orders {
		row := []string{
			o.ID,
			orDefault(o.UserEmail, missingValue),
			o.Model,
			o.Color,
			o.Interior,
			o.Price,
			string(o.PaymentMethod),
			orDefault(string(o.CardType), missingValue),
			string(o.Status),
			o.CreatedAt.Format(exportDateFmt),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row for order %s: %w", o.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename names an export produced on the given day.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("%s-%s.csv", exportPrefix, now.Format(exportDateFmt))
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
