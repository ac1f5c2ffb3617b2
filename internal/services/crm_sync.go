package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/one39/enrollment/internal/config"
	"github.com/one39/enrollment/internal/domain/billing"
	"github.com/one39/enrollment/internal/domain/crm"
	"github.com/one39/enrollment/internal/pkg/logger"
	"github.com/one39/enrollment/internal/pkg/metrics"
)

const (
	crmDateLayout  = "2006-01-02"
	phoneCountry   = "US"
	portalLinkText = "Billing Portal"
	crmStageGroup  = "group"
	crmStageItem   = "item"
	crmStagePortal = "portal_link"
)

// CRMSyncService implements crm.Service against a single board
type CRMSyncService struct {
	client            crm.Client
	portal            billing.PortalLinker
	boardID           string
	columns           config.MondayColumns
	includePortalLink bool
	portalReturnURL   string
	logger            *logger.Logger
}

// CRMSyncOptions configures a CRMSyncService
type CRMSyncOptions struct {
	BoardID           string
	Columns           config.MondayColumns
	IncludePortalLink bool
	PortalReturnURL   string
}

// NewCRMSyncService creates a new CRM sync service
func NewCRMSyncService(client crm.Client, portal billing.PortalLinker, opts CRMSyncOptions, log *logger.Logger) crm.Service {
	return &CRMSyncService{
		client:            client,
		portal:            portal,
		boardID:           opts.BoardID,
		columns:           opts.Columns,
		includePortalLink: opts.IncludePortalLink,
		portalReturnURL:   opts.PortalReturnURL,
		logger:            log,
	}
}

// Sync writes one board item for the enrollment. Failures are logged and
// never returned, and cancellation of ctx is ignored.
func (s *CRMSyncService) Sync(ctx context.Context, rec crm.Record) {
	// The enrollment is already billed; a disconnected caller must not drop
	// the board write.
	ctx = context.WithoutCancel(ctx)

	if s.includePortalLink && rec.PortalLink == "" {
		rec.PortalLink = s.GetPortalLink(ctx, rec.CustomerID)
	}

	groupID, err := s.EnsureGroup(ctx, rec.Coach)
	if err != nil {
		metrics.RecordCRMSyncFailure(crmStageGroup)
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"coach":       rec.Coach,
			"customer_id": rec.CustomerID,
		}).Error("CRM integration failed")
		return
	}

	itemID, err := s.WriteRecord(ctx, groupID, rec)
	if err != nil {
		metrics.RecordCRMSyncFailure(crmStageItem)
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"group_id":    groupID,
			"customer_id": rec.CustomerID,
		}).Error("CRM item creation failed")
		return
	}

	s.logger.WithFields(map[string]interface{}{
		"item_id":     itemID,
		"group_id":    groupID,
		"customer_id": rec.CustomerID,
	}).Info("Enrollment added to CRM")
}

// EnsureGroup returns the id of the coach's group, creating it when no
// group title matches case-insensitively. Concurrent first enrollments for
// a new coach may create duplicate groups.
func (s *CRMSyncService) EnsureGroup(ctx context.Context, coach string) (string, error) {
	groups, err := s.client.ListGroups(ctx, s.boardID)
	if err != nil {
		return "", err
	}

	for _, g := range groups {
		if strings.EqualFold(g.Title, coach) {
			s.logger.WithFields(map[string]interface{}{
				"group_id": g.ID,
				"coach":    coach,
			}).Debug("Found existing group")
			return g.ID, nil
		}
	}

	id, err := s.client.CreateGroup(ctx, s.boardID, coach)
	if err != nil {
		return "", err
	}

	s.logger.WithFields(map[string]interface{}{
		"group_id": id,
		"coach":    coach,
	}).Info("Created new group for coach")

	return id, nil
}

// WriteRecord creates the board item for rec under groupID
func (s *CRMSyncService) WriteRecord(ctx context.Context, groupID string, rec crm.Record) (string, error) {
	return s.client.CreateItem(ctx, crm.ItemInput{
		BoardID:      s.boardID,
		GroupID:      groupID,
		ItemName:     rec.Name,
		ColumnValues: s.columnValues(rec),
	})
}

// GetPortalLink returns a billing portal URL for the customer, or an empty
// string if the provider call fails.
func (s *CRMSyncService) GetPortalLink(ctx context.Context, customerID string) string {
	if s.portal == nil || customerID == "" {
		return ""
	}

	url, err := s.portal.CreatePortalSession(ctx, customerID, s.portalReturnURL)
	if err != nil {
		metrics.RecordCRMSyncFailure(crmStagePortal)
		s.logger.WithError(err).With("customer_id", customerID).Warn("Billing portal link unavailable")
		return ""
	}
	return url
}

// Snapshot returns the raw board dump
func (s *CRMSyncService) Snapshot(ctx context.Context) (json.RawMessage, error) {
	return s.client.BoardSnapshot(ctx, s.boardID)
}

func (s *CRMSyncService) columnValues(rec crm.Record) map[string]interface{} {
	today := rec.EnrolledAt.UTC().Format(crmDateLayout)
	cols := s.columns

	values := map[string]interface{}{
		cols.Email:          map[string]string{"email": rec.Email, "text": rec.Email},
		cols.Phone:          map[string]string{"phone": rec.Phone, "countryShortName": phoneCountry},
		cols.EnrolledDate:   map[string]string{"date": today},
		cols.ActiveSince:    map[string]string{"date": today},
		cols.Status:         map[string]string{"label": crm.StatusActive},
		cols.CustomerID:     rec.CustomerID,
		cols.SubscriptionID: rec.SubscriptionID,
		cols.Church:         rec.Church,
		cols.Plan:           rec.PlanLabel,
	}

	if rec.PortalLink != "" && cols.PortalLink != "" {
		values[cols.PortalLink] = map[string]string{"url": rec.PortalLink, "text": portalLinkText}
	}

	return values
}
