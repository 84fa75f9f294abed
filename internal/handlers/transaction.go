package handlers

import (
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/fintrack/internal/middleware"
	"github.com/example/fintrack/internal/models"
	"github.com/example/fintrack/internal/utils"
)

const fallbackCategoryColor = "#6B7280"

// TransactionHandler manages transaction endpoints and monthly stats.
type TransactionHandler struct {
	db *gorm.DB
}

// NewTransactionHandler constructs a TransactionHandler.
func NewTransactionHandler(db *gorm.DB) *TransactionHandler {
	return &TransactionHandler{db: db}
}

type transactionFilters struct {
	txType    string
	category  string
	dateFrom  *time.Time
	dateTo    *time.Time
	amountMin *float64
	amountMax *float64
	search    string
}

func parseTransactionFilters(c *fiber.Ctx) (*transactionFilters, error) {
	f := &transactionFilters{
		txType:   c.Query("type"),
		category: c.Query("category"),
		search:   c.Query("search"),
	}

	for _, q := range []struct {
		name string
		dst  **time.Time
	}{
		{"date_from", &f.dateFrom},
		{"date_to", &f.dateTo},
	} {
		if raw := c.Query(q.name); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+q.name)
			}
			*q.dst = &parsed
		}
	}

	for _, q := range []struct {
		name string
		dst  **float64
	}{
		{"amount_min", &f.amountMin},
		{"amount_max", &f.amountMax},
	} {
		if raw := c.Query(q.name); raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+q.name)
			}
			*q.dst = &parsed
		}
	}

	return f, nil
}

func (f *transactionFilters) apply(q *gorm.DB, userID uuid.UUID) *gorm.DB {
	q = q.Where("user_id = ?", userID)
	if f.txType != "" {
		q = q.Where("type = ?", f.txType)
	}
	if f.category != "" {
		q = q.Where("category = ?", f.category)
	}
	if f.dateFrom != nil {
		q = q.Where("date >= ?", *f.dateFrom)
	}
	if f.dateTo != nil {
		q = q.Where("date <= ?", *f.dateTo)
	}
	if f.amountMin != nil {
		q = q.Where("amount >= ?", *f.amountMin)
	}
	if f.amountMax != nil {
		q = q.Where("amount <= ?", *f.amountMax)
	}
	if f.search != "" {
		pattern := "%" + f.search + "%"
		q = q.Where("LOWER(note) LIKE LOWER(?) OR LOWER(category) LIKE LOWER(?)", pattern, pattern)
	}
	return q
}

// ListTransactions returns the user's transactions, filtered and paginated,
// newest first.
func (h *TransactionHandler) ListTransactions(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	filters, err := parseTransactionFilters(c)
	if err != nil {
		return err
	}
	pagination := utils.ParsePagination(c)

	var total int64
	if err := filters.apply(h.db.Model(&models.Transaction{}), userID).Count(&total).Error; err != nil {
		return err
	}

	var items []models.Transaction
	err = filters.apply(h.db, userID).
		Order("date desc").
		Offset(pagination.Offset).
		Limit(pagination.Limit).
		Find(&items).Error
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"items":     items,
		"total":     total,
		"page":      pagination.Page,
		"page_size": pagination.Limit,
		"has_more":  int64(pagination.Page*pagination.Limit) < total,
	})
}

// GetTransaction returns a single transaction owned by the user.
func (h *TransactionHandler) GetTransaction(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	tx, err := h.findTransaction(c, userID)
	if err != nil {
		return err
	}

	return c.JSON(tx)
}

type createTransactionRequest struct {
	Type      string    `json:"type" validate:"required,oneof=income expense"`
	Amount    float64   `json:"amount" validate:"required,gt=0"`
	Currency  string    `json:"currency" validate:"required,len=3"`
	Category  string    `json:"category" validate:"required"`
	Note      string    `json:"note"`
	Date      time.Time `json:"date" validate:"required"`
	Recurring bool      `json:"recurring"`
}

// CreateTransaction records a new transaction for the user.
func (h *TransactionHandler) CreateTransaction(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, utils.ValidationMessage(err))
	}

	tx := models.Transaction{
		UserID:    userID,
		Type:      req.Type,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Category:  req.Category,
		Note:      req.Note,
		Date:      req.Date,
		Recurring: req.Recurring,
	}

	if err := h.db.Create(&tx).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(tx)
}

type updateTransactionRequest struct {
	Type      *string    `json:"type" validate:"omitempty,oneof=income expense"`
	Amount    *float64   `json:"amount" validate:"omitempty,gt=0"`
	Currency  *string    `json:"currency" validate:"omitempty,len=3"`
	Category  *string    `json:"category"`
	Note      *string    `json:"note"`
	Date      *time.Time `json:"date"`
	Recurring *bool      `json:"recurring"`
}

// UpdateTransaction updates the provided fields of a transaction.
func (h *TransactionHandler) UpdateTransaction(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	tx, err := h.findTransaction(c, userID)
	if err != nil {
		return err
	}

	var req updateTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, utils.ValidationMessage(err))
	}

	updates := map[string]interface{}{}
	if req.Type != nil {
		updates["type"] = *req.Type
	}
	if req.Amount != nil {
		updates["amount"] = *req.Amount
	}
	if req.Currency != nil {
		updates["currency"] = *req.Currency
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Note != nil {
		updates["note"] = *req.Note
	}
	if req.Date != nil {
		updates["date"] = *req.Date
	}
	if req.Recurring != nil {
		updates["recurring"] = *req.Recurring
	}

	if len(updates) > 0 {
		if err := h.db.Model(tx).Updates(updates).Error; err != nil {
			return err
		}
	}

	return c.JSON(tx)
}

// DeleteTransaction removes a transaction owned by the user.
func (h *TransactionHandler) DeleteTransaction(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	tx, err := h.findTransaction(c, userID)
	if err != nil {
		return err
	}

	if err := h.db.Delete(tx).Error; err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Stats returns the monthly summary: totals, expense breakdown by category
// and a zero-filled daily series up to today.
func (h *TransactionHandler) Stats(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	now := time.Now().UTC()
	year, month := now.Year(), int(now.Month())
	if raw := c.Query("month"); raw != "" {
		parsed, err := time.Parse("2006-01", raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "month must be formatted as YYYY-MM")
		}
		year, month = parsed.Year(), int(parsed.Month())
	}

	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)

	// Aggregation happens in-process from one month-bounded query; the SQL
	// stays portable across the postgres and sqlite drivers.
	var transactions []models.Transaction
	err := h.db.
		Where("user_id = ? AND date >= ? AND date < ?", userID, monthStart, nextMonth).
		Find(&transactions).Error
	if err != nil {
		return err
	}

	var categories []models.Category
	if err := h.db.Where("user_id = ?", userID).Find(&categories).Error; err != nil {
		return err
	}
	colors := make(map[string]string, len(categories))
	for _, cat := range categories {
		colors[cat.Name] = cat.Color
	}

	var totalIncome, totalExpenses float64
	byCategory := map[string]float64{}
	daily := map[string]*dailyStat{}

	for _, tx := range transactions {
		day := tx.Date.UTC().Format("2006-01-02")
		if daily[day] == nil {
			daily[day] = &dailyStat{}
		}
		switch tx.Type {
		case models.TransactionIncome:
			totalIncome += tx.Amount
			daily[day].Income += tx.Amount
		case models.TransactionExpense:
			totalExpenses += tx.Amount
			daily[day].Expense += tx.Amount
			byCategory[tx.Category] += tx.Amount
		}
	}

	categoryStats := make([]fiber.Map, 0, len(byCategory))
	for name, amount := range byCategory {
		color, ok := colors[name]
		if !ok {
			color = fallbackCategoryColor
		}
		categoryStats = append(categoryStats, fiber.Map{
			"category": name,
			"amount":   amount,
			"color":    color,
		})
	}
	sort.Slice(categoryStats, func(i, j int) bool {
		return categoryStats[i]["amount"].(float64) > categoryStats[j]["amount"].(float64)
	})

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := nextMonth
	if today.Before(end) {
		end = today
	}

	dailyStats := make([]fiber.Map, 0)
	for day := monthStart; day.Before(end); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		entry := daily[key]
		if entry == nil {
			entry = &dailyStat{}
		}
		dailyStats = append(dailyStats, fiber.Map{
			"date":    key,
			"income":  entry.Income,
			"expense": entry.Expense,
		})
	}

	return c.JSON(fiber.Map{
		"total_income":   totalIncome,
		"total_expenses": totalExpenses,
		"balance":        totalIncome - totalExpenses,
		"by_category":    categoryStats,
		"daily":          dailyStats,
	})
}

type dailyStat struct {
	Income  float64
	Expense float64
}

func (h *TransactionHandler) findTransaction(c *fiber.Ctx, userID uuid.UUID) (*models.Transaction, error) {
	txID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Transaction not found")
	}

	var tx models.Transaction
	err = h.db.Where("id = ? AND user_id = ?", txID, userID).First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Transaction not found")
		}
		return nil, err
	}

	return &tx, nil
}
