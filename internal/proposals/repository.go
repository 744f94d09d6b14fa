package proposals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turyasin/Proposal-App-Live/internal/platform/db"
	"github.com/turyasin/Proposal-App-Live/internal/platform/httpx"
)

var ErrNotFound = fmt.Errorf("proposal: %w", httpx.ErrNotFound)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Proposal, error)
	ListAll(ctx context.Context) ([]Proposal, error)
	Create(ctx context.Context, p Proposal) (int64, error)
	Update(ctx context.Context, id int64, p Proposal) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	Delete(ctx context.Context, id int64) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		repoTx := &repository{db: tx, pool: r.pool}
		return fn(ctx, repoTx)
	})
}

const proposalColumns = `
	id, proposal_no, version, issue_date, validity_days, status, preparer,
	company_id, company_snapshot, product, quantity, calculation,
	total_price, total_price_try, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Proposal, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM proposals WHERE id = $1
	`, proposalColumns), id)

	p, err := scanProposal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	items, err := r.loadItems(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	p.Items = items[id]
	return p, nil
}

// ListAll loads the complete archive in issue order. The archive of a small
// commercial operation stays in the low thousands, so filtering happens in
// memory on top of this read.
func (r *repository) ListAll(ctx context.Context) ([]Proposal, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM proposals ORDER BY issue_date DESC, id DESC
	`, proposalColumns))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proposals []Proposal
	var ids []int64
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, *p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return proposals, nil
	}
	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range proposals {
		proposals[i].Items = items[proposals[i].ID]
	}
	return proposals, nil
}

func (r *repository) Create(ctx context.Context, p Proposal) (int64, error) {
	snapshot, product, calculation, err := marshalBlocks(p)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.db.QueryRow(ctx, `
		INSERT INTO proposals (
			proposal_no, version, issue_date, validity_days, status, preparer,
			company_id, company_snapshot, product, quantity, calculation,
			total_price, total_price_try, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		RETURNING id
	`,
		p.ProposalNo, p.Version, p.Date, p.ValidityDays, string(p.Status.OrDefault()), nullString(p.Preparer),
		nullInt64(p.CompanyID.Int64()), snapshot, product, p.Quantity, calculation,
		p.TotalPrice, p.TotalPriceTRY,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	if err := r.insertItems(ctx, id, p.Items); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, p Proposal) error {
	snapshot, product, calculation, err := marshalBlocks(p)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE proposals SET
			proposal_no = $1, version = $2, issue_date = $3, validity_days = $4,
			status = $5, preparer = $6, company_id = $7, company_snapshot = $8,
			product = $9, quantity = $10, calculation = $11,
			total_price = $12, total_price_try = $13, updated_at = NOW()
		WHERE id = $14
	`,
		p.ProposalNo, p.Version, p.Date, p.ValidityDays,
		string(p.Status.OrDefault()), nullString(p.Preparer), nullInt64(p.CompanyID.Int64()), snapshot,
		product, p.Quantity, calculation,
		p.TotalPrice, p.TotalPriceTRY, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM proposal_items WHERE proposal_id = $1`, id); err != nil {
		return err
	}
	return r.insertItems(ctx, id, p.Items)
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE proposals SET status = $1, updated_at = NOW() WHERE id = $2
	`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM proposal_items WHERE proposal_id = $1`, id); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM proposals WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) insertItems(ctx context.Context, proposalID int64, items []LineItem) error {
	for i, item := range items {
		product, err := json.Marshal(item.Product)
		if err != nil {
			return fmt.Errorf("marshal item product: %w", err)
		}
		var calculation []byte
		if item.Calculation != nil {
			calculation, err = json.Marshal(item.Calculation)
			if err != nil {
				return fmt.Errorf("marshal item calculation: %w", err)
			}
		}
		_, err = r.db.Exec(ctx, `
			INSERT INTO proposal_items (proposal_id, product, quantity, calculation, price, line_order)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, proposalID, product, item.Quantity, calculation, item.Price, i+1)
		if err != nil {
			return fmt.Errorf("insert proposal item: %w", err)
		}
	}
	return nil
}

func (r *repository) loadItems(ctx context.Context, proposalIDs []int64) (map[int64][]LineItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT proposal_id, product, quantity, calculation, price
		FROM proposal_items
		WHERE proposal_id = ANY($1)
		ORDER BY proposal_id, line_order
	`, proposalIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[int64][]LineItem)
	for rows.Next() {
		var proposalID int64
		var item LineItem
		var productRaw, calcRaw []byte
		var price pgtype.Numeric

		if err := rows.Scan(&proposalID, &productRaw, &item.Quantity, &calcRaw, &price); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(productRaw, &item.Product); err != nil {
			return nil, fmt.Errorf("unmarshal item product: %w", err)
		}
		if len(calcRaw) > 0 {
			item.Calculation = &Calculation{}
			if err := json.Unmarshal(calcRaw, item.Calculation); err != nil {
				return nil, fmt.Errorf("unmarshal item calculation: %w", err)
			}
		}
		if price.Valid {
			f, _ := price.Float64Value()
			item.Price = f.Float64
		}
		items[proposalID] = append(items[proposalID], item)
	}
	return items, rows.Err()
}

func scanProposal(row pgx.Row) (*Proposal, error) {
	var p Proposal
	var version, preparer, status pgtype.Text
	var issueDate pgtype.Date
	var companyID pgtype.Int8
	var snapshotRaw, productRaw, calcRaw []byte
	var totalPrice, totalPriceTRY pgtype.Numeric
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(
		&p.ID, &p.ProposalNo, &version, &issueDate, &p.ValidityDays, &status, &preparer,
		&companyID, &snapshotRaw, &productRaw, &p.Quantity, &calcRaw,
		&totalPrice, &totalPriceTRY, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if version.Valid {
		p.Version = version.String
	}
	if issueDate.Valid {
		p.Date = issueDate.Time
	}
	if status.Valid {
		p.Status = Status(status.String)
	}
	if preparer.Valid {
		p.Preparer = preparer.String
	}
	if companyID.Valid {
		p.CompanyID = FlexID(companyID.Int64)
	}
	if len(snapshotRaw) > 0 {
		p.Company = &CompanySnapshot{}
		if err := json.Unmarshal(snapshotRaw, p.Company); err != nil {
			return nil, fmt.Errorf("unmarshal company snapshot: %w", err)
		}
	}
	if len(productRaw) > 0 {
		p.Product = &ProductRef{}
		if err := json.Unmarshal(productRaw, p.Product); err != nil {
			return nil, fmt.Errorf("unmarshal product: %w", err)
		}
	}
	if len(calcRaw) > 0 {
		p.Calculation = &Calculation{}
		if err := json.Unmarshal(calcRaw, p.Calculation); err != nil {
			return nil, fmt.Errorf("unmarshal calculation: %w", err)
		}
	}
	if totalPrice.Valid {
		f, _ := totalPrice.Float64Value()
		p.TotalPrice = f.Float64
	}
	if totalPriceTRY.Valid {
		f, _ := totalPriceTRY.Float64Value()
		p.TotalPriceTRY = f.Float64
	}
	if createdAt.Valid {
		p.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		p.UpdatedAt = updatedAt.Time
	}
	return &p, nil
}

func marshalBlocks(p Proposal) (snapshot, product, calculation []byte, err error) {
	if p.Company != nil {
		snapshot, err = json.Marshal(p.Company)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal company snapshot: %w", err)
		}
	}
	if p.Product != nil {
		product, err = json.Marshal(p.Product)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal product: %w", err)
		}
	}
	if p.Calculation != nil {
		calculation, err = json.Marshal(p.Calculation)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal calculation: %w", err)
		}
	}
	return snapshot, product, calculation, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt64(n int64) *int64 {
	if n == 0 {
		return nil
	}
	return &n
}
