package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"spendify/internal/logger"
	"spendify/internal/models"
)

// Audit actions.
const (
	AuditRegister     = "REGISTER"
	AuditLogin        = "LOGIN"
	AuditLogout       = "LOGOUT"
	AuditCreate       = "CREATE"
	AuditUpdate       = "UPDATE"
	AuditDelete       = "DELETE"
	AuditCardTransfer = "CARD_TRANSFER"
	AuditPeerTransfer = "PEER_TRANSFER"
)

// auditService records sensitive user operations.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit event. Failures are logged and swallowed so auditing
// never fails the request it describes.
func (s *auditService) Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]any) {
	var changesJSON string
	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			logger.Get().Errorw("failed to marshal audit changes", "error", err, "action", action)
			changesJSON = "{}"
		} else {
			changesJSON = string(data)
		}
	}

	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      changesJSON,
	}
	if err := s.db.Create(entry).Error; err != nil {
		logger.Get().Errorw("failed to write audit entry",
			"error", err,
			"user_id", userID,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}
