// Package booking hands appointment requests to the AI booking assistant
// webhook.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"healthmate/internal/catalog"
)

const (
	MessageBooking = "Your AI assistant is booking your appointment. You'll receive a notification when it's confirmed."
	MessageFailed  = "Something went wrong. Please try again later."

	defaultUserName = "Sara"
	maxUserNameLen  = 100
)

var (
	ErrProviderNotFound = errors.New("booking: provider not found")
	ErrInvalidArgument  = errors.New("booking: invalid argument")
	ErrUpstream         = errors.New("booking: webhook failed")
)

type Poster interface {
	PostJSON(ctx context.Context, url string, payload any) ([]byte, error)
}

type Auditor interface {
	LogBooking(ctx context.Context, providerID, ip string, ok bool, reason string, payload any) error
}

type CatalogSource interface {
	Current() *catalog.Catalog
}

// Request is the webhook payload.
type Request struct {
	ProviderName  string `json:"providerName"`
	ProviderPhone string `json:"providerPhone"`
	Specialty     string `json:"specialty"`
	UserName      string `json:"userName"`
}

type Result struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Request Request `json:"request"`
}

type Service struct {
	webhook    Poster
	webhookURL string
	catalog    CatalogSource
	audit      Auditor
	log        *slog.Logger
}

func NewService(webhook Poster, webhookURL string, src CatalogSource, audit Auditor, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{webhook: webhook, webhookURL: webhookURL, catalog: src, audit: audit, log: log}
}

// Book posts the booking request for a provider. userName defaults to the
// catalog's user. Both outcomes are audited.
func (s *Service) Book(ctx context.Context, providerID int, userName, clientIP string) (Result, error) {
	cat := s.catalog.Current()
	p, ok := cat.Provider(providerID)
	if !ok {
		return Result{}, ErrProviderNotFound
	}

	userName = strings.TrimSpace(userName)
	if len(userName) > maxUserNameLen {
		return Result{}, fmt.Errorf("%w: userName too long", ErrInvalidArgument)
	}
	if userName == "" {
		userName = cat.UserName
	}
	if userName == "" {
		userName = defaultUserName
	}

	req := Request{
		ProviderName:  p.Name,
		ProviderPhone: p.Phone,
		UserName:      userName,
	}
	if len(p.Specialties) > 0 {
		req.Specialty = p.Specialties[0]
	}

	_, err := s.webhook.PostJSON(ctx, s.webhookURL, req)
	s.record(ctx, providerID, clientIP, err, req)
	if err != nil {
		s.log.Warn("booking: webhook failed", "provider_id", providerID, "err", err)
		return Result{Status: "error", Message: MessageFailed, Request: req}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return Result{Status: "booking", Message: MessageBooking, Request: req}, nil
}

func (s *Service) record(ctx context.Context, providerID int, ip string, callErr error, req Request) {
	if s.audit == nil {
		return
	}
	reason := ""
	if callErr != nil {
		reason = callErr.Error()
	}
	if err := s.audit.LogBooking(ctx, strconv.Itoa(providerID), ip, callErr == nil, reason, req); err != nil {
		s.log.Error("booking: audit", "provider_id", providerID, "err", err)
	}
}
