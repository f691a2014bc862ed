package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"buildplus/internal/core/id"
	"buildplus/internal/domain/datadeletion"
)

// AuditAction represents the type of audited operation.
type AuditAction string

const AuditActionDataDeletion AuditAction = "data_deletion"

// CompressionAlgo specifies the compression algorithm used for a report.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the report size above which reports are stored compressed.
const DefaultCompressThreshold = 10 * 1024

var _ datadeletion.Auditor = (*AuditService)(nil)

type auditRow struct {
	ID               id.ID           `db:"id"`
	CompanyID        string          `db:"company_id"`
	UserID           string          `db:"user_id"`
	Action           AuditAction     `db:"action"`
	Categories       []string        `db:"categories"`
	Report           json.RawMessage `db:"report"`
	ReportCompressed []byte          `db:"report_compressed"`
	CompressionAlgo  CompressionAlgo `db:"compression_algo"`
	CreatedAt        time.Time       `db:"created_at"`
}

// AuditService stores deletion history in sys_audit. It writes through the
// transaction in context so an audit row commits or rolls back with the deletion.
type AuditService struct {
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditService creates the audit store. A threshold <= 0 uses DefaultCompressThreshold.
func NewAuditService(compressThreshold int) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	if compressThreshold <= 0 {
		compressThreshold = DefaultCompressThreshold
	}
	return &AuditService{
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: compressThreshold,
	}, nil
}

// Close releases the zstd decoder.
func (s *AuditService) Close() {
	s.decoder.Close()
}

// encode returns the report split into the plain and compressed columns.
func (s *AuditService) encode(report json.RawMessage) (json.RawMessage, []byte, CompressionAlgo) {
	if len(report) <= s.compressThreshold {
		return report, nil, CompressionNone
	}
	return nil, s.encoder.EncodeAll(report, nil), CompressionZstd
}

func (s *AuditService) decode(row auditRow) (json.RawMessage, error) {
	if row.CompressionAlgo != CompressionZstd {
		return row.Report, nil
	}
	out, err := s.decoder.DecodeAll(row.ReportCompressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress report %s: %w", row.ID, err)
	}
	return out, nil
}

func (s *AuditService) insertQuery(rec datadeletion.AuditRecord) (string, []any, error) {
	report, compressed, algo := s.encode(rec.Report)
	return Builder().
		Insert("sys_audit").
		Columns("id", "company_id", "user_id", "action", "categories",
			"report", "report_compressed", "compression_algo", "created_at").
		Values(rec.ID, rec.CompanyID, rec.UserID, AuditActionDataDeletion, rec.Categories,
			report, compressed, algo, rec.CreatedAt).
		ToSql()
}

func historyQuery(companyID string, limit int) (string, []any, error) {
	return Builder().
		Select("id", "company_id", "user_id", "action", "categories",
			"report", "report_compressed", "compression_algo", "created_at").
		From("sys_audit").
		Where("company_id = ?", companyID).
		Where("action = ?", AuditActionDataDeletion).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
}

// RecordDeletion inserts one audit row.
func (s *AuditService) RecordDeletion(ctx context.Context, rec datadeletion.AuditRecord) error {
	if id.IsNil(rec.ID) {
		rec.ID = id.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	sql, args, err := s.insertQuery(rec)
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}
	if _, err := MustGetTxManager(ctx).GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// DeletionHistory returns the company's latest deletions, newest first.
func (s *AuditService) DeletionHistory(ctx context.Context, companyID string, limit int) ([]datadeletion.AuditRecord, error) {
	sql, args, err := historyQuery(companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("build history query: %w", err)
	}

	var rows []auditRow
	if err := pgxscan.Select(ctx, MustGetTxManager(ctx).GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	out := make([]datadeletion.AuditRecord, 0, len(rows))
	for _, row := range rows {
		report, err := s.decode(row)
		if err != nil {
			return nil, err
		}
		out = append(out, datadeletion.AuditRecord{
			ID:         row.ID,
			CompanyID:  row.CompanyID,
			UserID:     row.UserID,
			Categories: row.Categories,
			Report:     report,
			CreatedAt:  row.CreatedAt,
		})
	}
	return out, nil
}
