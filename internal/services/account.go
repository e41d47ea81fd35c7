package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/khelmart/khelmart/internal/auth"
	"github.com/khelmart/khelmart/internal/logging"
	"github.com/khelmart/khelmart/internal/models"
)

type profileStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
}

type addressStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.CustomerAddress, error)
	Create(ctx context.Context, address *models.CustomerAddress) error
	Delete(ctx context.Context, addressID, userID uuid.UUID) error
	SetDefault(ctx context.Context, addressID, userID uuid.UUID) error
}

type wishlistStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.WishlistItem, error)
	Add(ctx context.Context, userID, productID uuid.UUID) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
}

type orderHistoryStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Order, error)
	GetByIDForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)
}

// AccountService handles the signed-in buyer's profile, addresses, wishlist
// and order history.
type AccountService struct {
	profiles  profileStore
	addresses addressStore
	wishlist  wishlistStore
	orders    orderHistoryStore
	logger    *slog.Logger
}

func NewAccountService(profiles profileStore, addresses addressStore, wishlist wishlistStore, orders orderHistoryStore, logger *slog.Logger) *AccountService {
	return &AccountService{
		profiles:  profiles,
		addresses: addresses,
		wishlist:  wishlist,
		orders:    orders,
		logger:    logger,
	}
}

func (s *AccountService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

func (s *AccountService) GetProfile(ctx context.Context, identity auth.Identity) (*models.Profile, error) {
	profile, err := s.profiles.Get(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// A fresh account has no profile row yet; return an empty shell
			// so the storefront can render the form.
			return &models.Profile{UserID: identity.UserID, Email: identity.Email}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	profile.Email = identity.Email
	return profile, nil
}

type ProfileUpdate struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

func (s *AccountService) UpdateProfile(ctx context.Context, identity auth.Identity, update ProfileUpdate) (*models.Profile, error) {
	profile := &models.Profile{
		UserID:   identity.UserID,
		FullName: update.FullName,
		Phone:    update.Phone,
	}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	s.loggerFromContext(ctx).Info("profile updated", "user_id", identity.UserID)
	profile.Email = identity.Email
	return profile, nil
}

func (s *AccountService) ListAddresses(ctx context.Context, identity auth.Identity) ([]*models.CustomerAddress, error) {
	addresses, err := s.addresses.ListByUser(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	return addresses, nil
}

func (s *AccountService) AddAddress(ctx context.Context, identity auth.Identity, input AddressInput) (*models.CustomerAddress, error) {
	address := &models.CustomerAddress{
		UserID:       identity.UserID,
		FullName:     input.FullName,
		AddressLine1: input.AddressLine1,
		AddressLine2: input.AddressLine2,
		City:         input.City,
		State:        input.State,
		PostalCode:   input.PostalCode,
		Country:      input.Country,
		Phone:        input.Phone,
	}
	if err := s.addresses.Create(ctx, address); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	s.loggerFromContext(ctx).Info("address added", "user_id", identity.UserID, "address_id", address.ID)
	return address, nil
}

func (s *AccountService) DeleteAddress(ctx context.Context, identity auth.Identity, addressID uuid.UUID) error {
	if err := s.addresses.Delete(ctx, addressID, identity.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	return nil
}

func (s *AccountService) SetDefaultAddress(ctx context.Context, identity auth.Identity, addressID uuid.UUID) error {
	if err := s.addresses.SetDefault(ctx, addressID, identity.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	return nil
}

func (s *AccountService) ListWishlist(ctx context.Context, identity auth.Identity) ([]*models.WishlistItem, error) {
	items, err := s.wishlist.ListByUser(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	return items, nil
}

func (s *AccountService) AddToWishlist(ctx context.Context, identity auth.Identity, productID uuid.UUID) error {
	if err := s.wishlist.Add(ctx, identity.UserID, productID); err != nil {
		return fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	return nil
}

func (s *AccountService) RemoveFromWishlist(ctx context.Context, identity auth.Identity, productID uuid.UUID) error {
	if err := s.wishlist.Remove(ctx, identity.UserID, productID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	return nil
}

func (s *AccountService) ListOrders(ctx context.Context, identity auth.Identity, limit int) ([]*models.Order, error) {
	orders, err := s.orders.ListByUser(ctx, identity.UserID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	return orders, nil
}

func (s *AccountService) GetOrder(ctx context.Context, identity auth.Identity, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetByIDForUser(ctx, orderID, identity.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	return order, nil
}
