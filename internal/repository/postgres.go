package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"TurtleStock/internal/domain/errs"
	"TurtleStock/internal/domain/models"
)

// Postgres-backed stores for the portfolio ledger, user settings and the
// scheduler run log. Signal rows live in ClickHouse, not here.

type holdingRow struct {
	ID           uint   `gorm:"primaryKey"`
	UserID       string `gorm:"size:64;uniqueIndex:idx_holdings_user_symbol"`
	Symbol       string `gorm:"size:16;uniqueIndex:idx_holdings_user_symbol"`
	TotalShares  float64
	AveragePrice float64
	Lots         []lotRow `gorm:"foreignKey:HoldingID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (holdingRow) TableName() string { return "holdings" }

type lotRow struct {
	ID        uint `gorm:"primaryKey"`
	HoldingID uint `gorm:"index"`
	Shares    float64
	Price     float64
	Date      time.Time
}

func (lotRow) TableName() string { return "purchase_lots" }

type tradeRow struct {
	ID                 uint   `gorm:"primaryKey"`
	UserID             string `gorm:"size:64;index"`
	Symbol             string `gorm:"size:16"`
	SharesSold         float64
	SellPrice          float64
	AveragePriceAtSale float64
	NetValue           float64
	Date               time.Time
	CreatedAt          time.Time
}

func (tradeRow) TableName() string { return "trades" }

type settingsRow struct {
	UserID        string `gorm:"primaryKey;size:64"`
	Capital       float64
	RiskTolerance float64
	MaxLossLimit  float64
	UpdatedAt     time.Time
}

func (settingsRow) TableName() string { return "user_settings" }

type runRow struct {
	ID               uint `gorm:"primaryKey"`
	StartedAt        time.Time
	FinishedAt       *time.Time
	Status           string `gorm:"size:32;index"`
	SymbolsProcessed int
	SymbolsFailed    int
	TriggeredBy      string `gorm:"size:16"`
}

func (runRow) TableName() string { return "scheduler_runs" }

// OpenPostgres connects and migrates the relational schema.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errs.System("postgres open").WithError(err)
	}
	if err := db.AutoMigrate(&holdingRow{}, &lotRow{}, &tradeRow{}, &settingsRow{}, &runRow{}); err != nil {
		return nil, errs.System("postgres migrate").WithError(err)
	}
	return db, nil
}

// PortfolioStore persists holdings, lots and realized trades.
type PortfolioStore struct {
	db *gorm.DB
}

func NewPortfolioStore(db *gorm.DB) *PortfolioStore {
	return &PortfolioStore{db: db}
}

func (s *PortfolioStore) GetHolding(ctx context.Context, userID, symbol string) (*models.Holding, error) {
	var row holdingRow
	err := s.db.WithContext(ctx).
		Preload("Lots", func(db *gorm.DB) *gorm.DB { return db.Order("date ASC, id ASC") }).
		Where("user_id = ? AND symbol = ?", userID, symbol).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.DataUnavailable("no holding for %s", symbol)
	}
	if err != nil {
		return nil, errs.System("load holding").WithError(err)
	}
	return rowToHolding(&row), nil
}

func (s *PortfolioStore) ListHoldings(ctx context.Context, userID string) ([]*models.Holding, error) {
	var rows []holdingRow
	err := s.db.WithContext(ctx).
		Preload("Lots", func(db *gorm.DB) *gorm.DB { return db.Order("date ASC, id ASC") }).
		Where("user_id = ?", userID).
		Order("symbol ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errs.System("list holdings").WithError(err)
	}
	out := make([]*models.Holding, 0, len(rows))
	for i := range rows {
		out = append(out, rowToHolding(&rows[i]))
	}
	return out, nil
}

// SaveHolding writes the holding and its full lot list in one transaction,
// replacing any previous lot rows.
func (s *PortfolioStore) SaveHolding(ctx context.Context, h *models.Holding) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveHoldingTx(tx, h)
	})
	if err != nil {
		return errs.System("save holding").WithError(err)
	}
	return nil
}

func (s *PortfolioStore) DeleteHolding(ctx context.Context, userID, symbol string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteHoldingTx(tx, userID, symbol)
	})
	if err != nil {
		var de *errs.Error
		if errors.As(err, &de) {
			return err
		}
		return errs.System("delete holding").WithError(err)
	}
	return nil
}

// ApplySell commits the reduced (or removed) holding together with its trade
// record. The two writes land atomically or not at all.
func (s *PortfolioStore) ApplySell(ctx context.Context, h *models.Holding, t *models.Trade, remove bool) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if remove {
			if err := deleteHoldingTx(tx, h.UserID, h.Symbol); err != nil {
				return err
			}
		} else if err := saveHoldingTx(tx, h); err != nil {
			return err
		}
		row := tradeRow{
			UserID:             t.UserID,
			Symbol:             t.Symbol,
			SharesSold:         t.SharesSold,
			SellPrice:          t.SellPrice,
			AveragePriceAtSale: t.AveragePriceAtSale,
			NetValue:           t.NetValue,
			Date:               t.Date,
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		var de *errs.Error
		if errors.As(err, &de) {
			return err
		}
		return errs.System("apply sell").WithError(err)
	}
	return nil
}

func (s *PortfolioStore) ListTrades(ctx context.Context, userID string) ([]models.Trade, error) {
	var rows []tradeRow
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, errs.System("list trades").WithError(err)
	}
	out := make([]models.Trade, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Trade{
			UserID:             r.UserID,
			Symbol:             r.Symbol,
			SharesSold:         r.SharesSold,
			SellPrice:          r.SellPrice,
			AveragePriceAtSale: r.AveragePriceAtSale,
			NetValue:           r.NetValue,
			Date:               r.Date,
		})
	}
	return out, nil
}

func saveHoldingTx(tx *gorm.DB, h *models.Holding) error {
	var row holdingRow
	err := tx.Where("user_id = ? AND symbol = ?", h.UserID, h.Symbol).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = holdingRow{UserID: h.UserID, Symbol: h.Symbol}
	case err != nil:
		return err
	default:
		if err := tx.Where("holding_id = ?", row.ID).Delete(&lotRow{}).Error; err != nil {
			return err
		}
	}

	row.TotalShares = h.TotalShares
	row.AveragePrice = h.AveragePrice
	row.Lots = make([]lotRow, 0, len(h.Lots))
	for _, l := range h.Lots {
		row.Lots = append(row.Lots, lotRow{Shares: l.Shares, Price: l.Price, Date: l.Date})
	}
	return tx.Save(&row).Error
}

func deleteHoldingTx(tx *gorm.DB, userID, symbol string) error {
	var row holdingRow
	err := tx.Where("user_id = ? AND symbol = ?", userID, symbol).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.DataUnavailable("no holding for %s", symbol)
	}
	if err != nil {
		return err
	}
	if err := tx.Where("holding_id = ?", row.ID).Delete(&lotRow{}).Error; err != nil {
		return err
	}
	return tx.Delete(&row).Error
}

func rowToHolding(row *holdingRow) *models.Holding {
	h := &models.Holding{
		UserID:       row.UserID,
		Symbol:       row.Symbol,
		TotalShares:  row.TotalShares,
		AveragePrice: row.AveragePrice,
		Lots:         make([]models.PurchaseLot, 0, len(row.Lots)),
	}
	for _, l := range row.Lots {
		h.Lots = append(h.Lots, models.PurchaseLot{Shares: l.Shares, Price: l.Price, Date: l.Date})
	}
	return h
}

// SettingsStore persists per-user risk settings.
type SettingsStore struct {
	db *gorm.DB
}

func NewSettingsStore(db *gorm.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(ctx context.Context, userID string) (*models.UserSettings, error) {
	var row settingsRow
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.DataUnavailable("no settings for user")
	}
	if err != nil {
		return nil, errs.System("load settings").WithError(err)
	}
	return &models.UserSettings{
		UserID:        row.UserID,
		Capital:       row.Capital,
		RiskTolerance: row.RiskTolerance,
		MaxLossLimit:  row.MaxLossLimit,
	}, nil
}

func (s *SettingsStore) Save(ctx context.Context, set *models.UserSettings) error {
	row := settingsRow{
		UserID:        set.UserID,
		Capital:       set.Capital,
		RiskTolerance: set.RiskTolerance,
		MaxLossLimit:  set.MaxLossLimit,
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return errs.System("save settings").WithError(err)
	}
	return nil
}

// RunStore is the append-only scheduler run log.
type RunStore struct {
	db *gorm.DB
}

func NewRunStore(db *gorm.DB) *RunStore {
	return &RunStore{db: db}
}

func (s *RunStore) Create(ctx context.Context, run *models.SchedulerRun) error {
	row := runRow{
		StartedAt:   run.StartedAt,
		Status:      string(run.Status),
		TriggeredBy: string(run.TriggeredBy),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return errs.System("create run").WithError(err)
	}
	run.ID = row.ID
	return nil
}

func (s *RunStore) Finish(ctx context.Context, run *models.SchedulerRun) error {
	updates := map[string]interface{}{
		"finished_at":       run.FinishedAt,
		"status":            string(run.Status),
		"symbols_processed": run.SymbolsProcessed,
		"symbols_failed":    run.SymbolsFailed,
	}
	err := s.db.WithContext(ctx).Model(&runRow{}).Where("id = ?", run.ID).Updates(updates).Error
	if err != nil {
		return errs.System("finish run").WithError(err)
	}
	return nil
}

func (s *RunStore) Latest(ctx context.Context) (*models.SchedulerRun, error) {
	return s.latestWhere(ctx, nil)
}

func (s *RunStore) LastSuccessful(ctx context.Context) (*models.SchedulerRun, error) {
	cond := map[string]interface{}{"status": string(models.RunStatusSuccess)}
	return s.latestWhere(ctx, cond)
}

func (s *RunStore) latestWhere(ctx context.Context, cond map[string]interface{}) (*models.SchedulerRun, error) {
	q := s.db.WithContext(ctx).Order("started_at DESC")
	if cond != nil {
		q = q.Where(cond)
	}
	var row runRow
	err := q.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.DataUnavailable("no runs recorded")
	}
	if err != nil {
		return nil, errs.System("load run").WithError(err)
	}
	return &models.SchedulerRun{
		ID:               row.ID,
		StartedAt:        row.StartedAt,
		FinishedAt:       row.FinishedAt,
		Status:           models.RunStatus(row.Status),
		SymbolsProcessed: row.SymbolsProcessed,
		SymbolsFailed:    row.SymbolsFailed,
		TriggeredBy:      models.RunTrigger(row.TriggeredBy),
	}, nil
}
