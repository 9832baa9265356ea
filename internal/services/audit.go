package services

import (
	"context"
	"strings"

	"threadsntrends_back_end/internal/models"

	"github.com/gocql/gocql"
)

const (
	ActionOrderCreate       = "order.create"
	ActionOrderUpdate       = "order.update"
	ActionOrderStatus       = "order.status"
	ActionOrderDelete       = "order.delete"
	ActionProductCreate     = "product.create"
	ActionProductUpdate     = "product.update"
	ActionProductDelete     = "product.delete"
	ActionProductImage      = "product.image"
	ActionStockUpdate       = "stock.update"
	ActionContactDelete     = "contact.delete"
	ActionMeasurementSubmit = "measurement.submitted"
	ActionLoginSuccess      = "auth.login_success"
	ActionLoginFailed       = "auth.login_failed"

	ResourceOrder       = "order"
	ResourceProduct     = "product"
	ResourceInventory   = "inventory"
	ResourceContact     = "contact"
	ResourceMeasurement = "measurement"
	ResourceAuth        = "auth"
)

const auditSchema = `CREATE TABLE IF NOT EXISTS audit_logs (
	id timeuuid PRIMARY KEY,
	user_id text,
	user_email text,
	action text,
	resource text,
	resource_id text,
	ip_address text,
	user_agent text,
	success boolean,
	error_msg text,
	timestamp timestamp
)`

type AuditFilter struct {
	UserID   string
	Action   string
	Resource string
	Limit    int
}

// AuditLog écrit le journal des actions d'administration dans Scylla.
type AuditLog struct {
	session *gocql.Session
}

func NewAuditLog(session *gocql.Session) *AuditLog {
	return &AuditLog{session: session}
}

func (a *AuditLog) EnsureSchema(ctx context.Context) error {
	return a.session.Query(auditSchema).WithContext(ctx).Exec()
}

func (a *AuditLog) Record(ctx context.Context, entry models.AuditLog) error {
	if entry.ID == (gocql.UUID{}) {
		entry.ID = gocql.TimeUUID()
	}
	return a.session.Query(`INSERT INTO audit_logs (
			id, user_id, user_email, action, resource, resource_id,
			ip_address, user_agent, success, error_msg, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.UserEmail, entry.Action, entry.Resource, entry.ResourceID,
		entry.IPAddress, entry.UserAgent, entry.Success, entry.ErrorMsg, entry.Timestamp,
	).WithContext(ctx).Exec()
}

func (a *AuditLog) List(ctx context.Context, f AuditFilter) ([]models.AuditLog, error) {
	query, args := auditQuery(f)
	iter := a.session.Query(query, args...).WithContext(ctx).Iter()

	var (
		out   []models.AuditLog
		entry models.AuditLog
	)
	for iter.Scan(&entry.ID, &entry.UserID, &entry.UserEmail, &entry.Action, &entry.Resource,
		&entry.ResourceID, &entry.IPAddress, &entry.UserAgent, &entry.Success, &entry.ErrorMsg, &entry.Timestamp) {
		out = append(out, entry)
		entry = models.AuditLog{}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

func auditQuery(f AuditFilter) (string, []any) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var conds []string
	var args []any
	if f.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, f.Action)
	}
	if f.Resource != "" {
		conds = append(conds, "resource = ?")
		args = append(args, f.Resource)
	}

	q := `SELECT id, user_id, user_email, action, resource, resource_id,
		ip_address, user_agent, success, error_msg, timestamp FROM audit_logs`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " LIMIT ?"
	args = append(args, limit)
	if len(conds) > 0 {
		q += " ALLOW FILTERING"
	}
	return q, args
}
