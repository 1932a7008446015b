package order

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"ms-ticketshop/internal/apperrors"
	"ms-ticketshop/internal/catalog"
	"ms-ticketshop/internal/logger"
	"ms-ticketshop/internal/models"
	"ms-ticketshop/internal/payu"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const defaultCustomerIP = "127.0.0.1"

type DBLayer interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, extOrderID string) (*models.Order, error)
	MergeOrderStatus(ctx context.Context, update models.StatusUpdate) error
}

type Gateway interface {
	Authenticate(ctx context.Context) (*oauth2.Token, error)
	CreateOrder(ctx context.Context, token *oauth2.Token, order payu.OrderRequest) (*payu.CreateOrderResult, error)
	GetOrderStatus(ctx context.Context, token *oauth2.Token, remoteOrderID string) (string, error)
	Capture(ctx context.Context, token *oauth2.Token, remoteOrderID string) error
	VerifySignature(body []byte, header string) bool
}

type TicketIssuer interface {
	IssueTickets(ctx context.Context, extOrderID string) (int, error)
}

type CaptureGuard interface {
	Acquire(ctx context.Context, remoteOrderID, owner string) (bool, error)
	Release(ctx context.Context, remoteOrderID, owner string) error
}

type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}

type OrderService struct {
	DB         DBLayer
	Gateway    Gateway
	Tickets    TicketIssuer
	Guard      CaptureGuard // optional
	Events     EventPublisher
	Logger     *logger.Logger
	EventTitle string
	Now        func() time.Time
	NewID      func() string

	validate *validator.Validate
}

func NewOrderService(db DBLayer, gateway Gateway, tickets TicketIssuer, events EventPublisher, log *logger.Logger) *OrderService {
	return &OrderService{
		DB:       db,
		Gateway:  gateway,
		Tickets:  tickets,
		Events:   events,
		Logger:   log,
		Now:      time.Now,
		NewID:    uuid.NewString,
		validate: newValidator(),
	}
}

// newValidator reports failing fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ---------------- CREATE ----------------

// CreateOrder prices the request, stores it as PENDING and only then asks
// PayU for a payment page. The stored row survives any gateway failure.
func (s *OrderService) CreateOrder(ctx context.Context, req models.CreateOrderRequest, origin, customerIP string) (*models.CreateOrderResponse, error) {
	if s.DB == nil {
		return nil, apperrors.ErrStoreUnavailable
	}

	req = trimRequest(req)
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	quantity, err := catalog.ClampQuantity(req.Quantity)
	if err != nil {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidQuantity, "Invalid quantity", "quantity")
	}

	now := s.Now()
	price, err := catalog.PriceFor(req.TicketType, req.PromoCode, quantity, now)
	if errors.Is(err, catalog.ErrUnknownTicketType) {
		return nil, apperrors.NewValidation(apperrors.CodeUnknownTicketType, "Unknown ticket type", "ticketType")
	}
	if err != nil {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidQuantity, "Invalid quantity", "quantity")
	}

	order := &models.Order{
		ExtOrderID:   s.NewID(),
		Status:       models.StatusPending,
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		Street:       req.Street,
		City:         req.City,
		PostalCode:   req.PostalCode,
		TicketType:   price.TicketType.Name,
		Quantity:     price.Quantity,
		UnitPrice:    price.UnitPrice,
		TotalAmount:  price.TotalAmount,
		PromoApplied: price.PromoApplied,
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}
	if req.PromoCode != "" {
		promo := req.PromoCode
		order.PromoCode = &promo
	}

	if err := s.DB.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	s.Logger.LogOrder("CREATE", order.ExtOrderID, fmt.Sprintf("type=%s qty=%d total=%d promo=%t",
		price.TicketType.Code, order.Quantity, order.TotalAmount, order.PromoApplied))

	token, err := s.Gateway.Authenticate(ctx)
	if err != nil {
		s.Logger.Error("PAYU", fmt.Sprintf("Auth failed for %s: %v", order.ExtOrderID, err))
		return nil, err
	}

	if customerIP == "" {
		customerIP = defaultCustomerIP
	}
	firstName, lastName := payu.SplitName(order.FullName)
	payuOrder := payu.OrderRequest{
		NotifyURL:   origin + "/api/notify",
		ContinueURL: origin + "/thanks.html?order=" + url.QueryEscape(order.ExtOrderID),
		CustomerIP:  customerIP,
		Description: fmt.Sprintf("%s - %s", s.EventTitle, price.TicketType.Name),
		TotalAmount: fmt.Sprintf("%d", order.TotalAmount),
		ExtOrderID:  order.ExtOrderID,
		Buyer: payu.Buyer{
			Email:     order.Email,
			Phone:     order.Phone,
			FirstName: firstName,
			LastName:  lastName,
		},
		Products: []payu.Product{payu.NewProduct(price.TicketType.Name, order.UnitPrice, order.Quantity)},
	}

	result, err := s.Gateway.CreateOrder(ctx, token, payuOrder)
	if err != nil {
		s.markFailed(ctx, order.ExtOrderID, models.StatusPayUCreateError)
		return nil, fmt.Errorf("%w: %w", apperrors.ErrGatewayCreateFailed, err)
	}
	if result.RedirectURI == "" {
		s.markFailed(ctx, order.ExtOrderID, models.StatusPayUCreateFailed)
		return nil, fmt.Errorf("%w: http=%d statusCode=%s", apperrors.ErrGatewayCreateFailed, result.HTTPStatus, result.StatusCode)
	}

	if result.RemoteOrderID != "" {
		remoteID := result.RemoteOrderID
		err := s.DB.MergeOrderStatus(ctx, models.StatusUpdate{ExtOrderID: order.ExtOrderID, RemoteOrderID: &remoteID})
		if err != nil {
			s.Logger.Warn("ORDER", fmt.Sprintf("Remote id for %s not stored: %v", order.ExtOrderID, err))
		}
	}

	s.publish(ctx, models.OrderEvent{
		Type:          models.EventOrderCreated,
		ExtOrderID:    order.ExtOrderID,
		Status:        order.Status,
		RemoteOrderID: result.RemoteOrderID,
		TicketType:    order.TicketType,
		Quantity:      order.Quantity,
		TotalAmount:   order.TotalAmount,
	})

	return &models.CreateOrderResponse{RedirectURI: result.RedirectURI, ExtOrderID: order.ExtOrderID}, nil
}

func trimRequest(req models.CreateOrderRequest) models.CreateOrderRequest {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Street = strings.TrimSpace(req.Street)
	req.City = strings.TrimSpace(req.City)
	req.PostalCode = strings.TrimSpace(req.PostalCode)
	req.TicketType = strings.TrimSpace(req.TicketType)
	req.PromoCode = strings.TrimSpace(req.PromoCode)
	return req
}

func (s *OrderService) validateRequest(req models.CreateOrderRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidation(apperrors.CodeMissingFields, "Missing fields")
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return apperrors.NewValidation(apperrors.CodeMissingFields, "Missing fields", fields...)
}

func (s *OrderService) markFailed(ctx context.Context, extOrderID, status string) {
	s.Logger.LogOrder("CREATE_FAILED", extOrderID, status)
	if err := s.DB.MergeOrderStatus(ctx, models.StatusUpdate{ExtOrderID: extOrderID, Status: &status}); err != nil {
		s.Logger.Error("ORDER", fmt.Sprintf("Failed to mark %s as %s: %v", extOrderID, status, err))
	}
}

// ---------------- STATUS ----------------

// applyStatus is the single write path for gateway-reported state, shared by
// the webhook and reconciliation. Nil fields never overwrite stored values.
// A resulting COMPLETED status triggers issuance, which is idempotent, so
// webhook and poll may run in any order or concurrently.
func (s *OrderService) applyStatus(ctx context.Context, update models.StatusUpdate) (string, int, error) {
	if err := s.DB.MergeOrderStatus(ctx, update); err != nil {
		return "", 0, err
	}

	order, err := s.DB.GetOrderByID(ctx, update.ExtOrderID)
	if err != nil {
		return "", 0, err
	}

	if update.Status != nil {
		event := models.OrderEvent{
			Type:       models.EventOrderStatus,
			ExtOrderID: order.ExtOrderID,
			Status:     order.Status,
		}
		if order.RemoteOrderID != nil {
			event.RemoteOrderID = *order.RemoteOrderID
		}
		s.publish(ctx, event)
	}

	if !models.IsCompleted(order.Status) {
		return order.Status, 0, nil
	}

	issued, err := s.Tickets.IssueTickets(ctx, order.ExtOrderID)
	if err != nil {
		return order.Status, issued, fmt.Errorf("issue tickets for %s: %w", order.ExtOrderID, err)
	}
	return order.Status, issued, nil
}

// ApplyNotification handles a PayU webhook delivery. PayU retries anything
// not acknowledged, so apart from a missing store nothing here is returned
// as an error; problems are logged and reported in the outcome.
func (s *OrderService) ApplyNotification(ctx context.Context, body []byte, signatureHeader string) (*models.NotificationOutcome, error) {
	if s.DB == nil {
		return nil, apperrors.ErrStoreUnavailable
	}

	n, err := payu.ParseNotification(body)
	if err != nil {
		s.Logger.Warn("WEBHOOK", fmt.Sprintf("Ignoring notification: %v", err))
		return &models.NotificationOutcome{Ignored: "malformed payload"}, nil
	}

	if s.Gateway != nil && !s.Gateway.VerifySignature(body, signatureHeader) {
		s.Logger.LogSecurity("WEBHOOK_SIGNATURE", fmt.Sprintf("invalid signature for order %s", n.ExtOrderID))
		return &models.NotificationOutcome{ExtOrderID: n.ExtOrderID, Ignored: "invalid signature"}, nil
	}

	if n.ExtOrderID == "" {
		s.Logger.Warn("WEBHOOK", "Notification without extOrderId")
		return &models.NotificationOutcome{Ignored: "missing extOrderId"}, nil
	}

	outcome := &models.NotificationOutcome{ExtOrderID: n.ExtOrderID}
	status, issued, err := s.applyStatus(ctx, models.StatusUpdate{
		ExtOrderID:    n.ExtOrderID,
		Status:        n.Status,
		RemoteOrderID: n.RemoteOrderID,
	})
	outcome.Status = status
	outcome.TicketsIssued = issued
	if err != nil {
		s.Logger.Error("WEBHOOK", fmt.Sprintf("Notification for %s not fully applied: %v", n.ExtOrderID, err))
		outcome.Ignored = err.Error()
		return outcome, nil
	}

	outcome.Applied = true
	s.Logger.LogOrder("NOTIFY", n.ExtOrderID, fmt.Sprintf("status=%s issued=%d", status, issued))
	return outcome, nil
}

// Reconcile asks PayU for the order's current state, captures it when it is
// waiting for confirmation, and applies the result like a webhook would.
func (s *OrderService) Reconcile(ctx context.Context, extOrderID string) (*models.SyncStatusResult, error) {
	if s.DB == nil {
		return nil, apperrors.ErrStoreUnavailable
	}

	order, err := s.DB.GetOrderByID(ctx, extOrderID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return &models.SyncStatusResult{Found: false}, nil
	}
	if err != nil {
		return nil, err
	}

	result := &models.SyncStatusResult{
		Found:         true,
		ExtOrderID:    order.ExtOrderID,
		RemoteOrderID: order.RemoteOrderID,
		Status:        order.Status,
	}
	if order.RemoteOrderID == nil || *order.RemoteOrderID == "" {
		return result, nil
	}
	remoteID := *order.RemoteOrderID

	token, err := s.Gateway.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	payuStatus, err := s.Gateway.GetOrderStatus(ctx, token, remoteID)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(payuStatus, models.StatusWaitingForConfirmation) {
		// A rejected capture usually means another caller already captured;
		// the re-query below tells what actually happened.
		if err := s.capture(ctx, token, remoteID); err != nil {
			s.Logger.Warn("PAYU", fmt.Sprintf("Capture of %s failed, re-querying status: %v", remoteID, err))
		}
		if payuStatus, err = s.Gateway.GetOrderStatus(ctx, token, remoteID); err != nil {
			return nil, err
		}
	}

	if payuStatus == "" {
		return result, nil
	}
	result.PayUStatus = &payuStatus

	status, issued, err := s.applyStatus(ctx, models.StatusUpdate{ExtOrderID: extOrderID, Status: &payuStatus})
	if err != nil {
		return nil, err
	}
	result.Status = status
	result.TicketsIssued = issued

	s.Logger.LogOrder("SYNC", extOrderID, fmt.Sprintf("payu=%s status=%s issued=%d", payuStatus, status, issued))
	return result, nil
}

// capture confirms the payment once. With a guard, a concurrent reconcile
// holding the lock makes this a no-op; without one PayU is expected to
// treat a repeated capture as harmless.
func (s *OrderService) capture(ctx context.Context, token *oauth2.Token, remoteID string) error {
	if s.Guard != nil {
		owner := uuid.NewString()
		ok, err := s.Guard.Acquire(ctx, remoteID, owner)
		switch {
		case err != nil:
			s.Logger.Warn("REDIS", fmt.Sprintf("Capture guard unavailable for %s: %v", remoteID, err))
		case !ok:
			s.Logger.LogPayment("CAPTURE_SKIPPED", remoteID, "capture in progress elsewhere")
			return nil
		default:
			defer func() {
				if err := s.Guard.Release(context.WithoutCancel(ctx), remoteID, owner); err != nil {
					s.Logger.Warn("REDIS", fmt.Sprintf("Capture lock for %s not released: %v", remoteID, err))
				}
			}()
		}
	}
	return s.Gateway.Capture(ctx, token, remoteID)
}

// GetOrderStatus reads the stored status only; it never calls PayU.
func (s *OrderService) GetOrderStatus(ctx context.Context, extOrderID string) (*models.OrderStatusResponse, error) {
	if s.DB == nil {
		return nil, apperrors.ErrStoreUnavailable
	}

	order, err := s.DB.GetOrderByID(ctx, extOrderID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return &models.OrderStatusResponse{Found: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.OrderStatusResponse{
		Found:         true,
		ExtOrderID:    order.ExtOrderID,
		Status:        order.Status,
		RemoteOrderID: order.RemoteOrderID,
	}, nil
}

func (s *OrderService) publish(ctx context.Context, event models.OrderEvent) {
	if s.Events == nil {
		return
	}
	event.OccurredAt = s.Now().UTC()
	if err := s.Events.PublishOrderEvent(ctx, event); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("%s for %s not published: %v", event.Type, event.ExtOrderID, err))
	}
}
