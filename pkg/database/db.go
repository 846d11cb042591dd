package database

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/arnavshah/workshop-scheduler/pkg/config"
	"github.com/arnavshah/workshop-scheduler/pkg/models"
)

// ErrRunNotFound is returned when a run id is unknown
var ErrRunNotFound = errors.New("run not found")

// APIKey represents the api_keys table
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"-"`
	Name       string     `gorm:"not null" json:"name"`
	KeyPreview string     `json:"key_preview"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// APIUsage represents the api_usage table
type APIUsage struct {
	ID                uint   `gorm:"primaryKey" json:"id"`
	KeyID             uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date              string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount      int    `gorm:"default:0" json:"request_count"`
	TotalParticipants int    `gorm:"default:0" json:"total_participants"`
	TotalAssignments  int    `gorm:"default:0" json:"total_assignments"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Run is one completed scheduling run
type Run struct {
	ID            string          `gorm:"primaryKey;size:36" json:"id"`
	KeyID         uint            `gorm:"index" json:"key_id"`
	Participants  int             `json:"participants"`
	Assignments   int             `json:"assignments"`
	Cohorts       int             `json:"cohorts"`
	FairnessScore float64         `json:"fairness_score"`
	CreatedAt     time.Time       `json:"created_at"`
	Rows          []RunAssignment `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"rows,omitempty"`
}

// RunAssignment is one output row of a run, kept in output order
type RunAssignment struct {
	ID          uint   `gorm:"primaryKey" json:"-"`
	RunID       string `gorm:"index;size:36;not null" json:"-"`
	Position    int    `gorm:"not null" json:"position"`
	Participant string `gorm:"not null" json:"participant"`
	Zone        string `json:"zone"`
	Day         string `gorm:"not null" json:"day"`
	Session     int    `json:"session"`
	Activity    string `gorm:"index;not null" json:"activity"`
}

// InitDB opens postgres when a URL is configured and sqlite otherwise, then
// migrates the schema
func InitDB(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	driver := "postgres"
	if cfg.URL != "" {
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  cfg.URL,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	} else {
		driver = "sqlite"
		db, err = gorm.Open(sqlite.Open(cfg.DataPath), &gorm.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := db.AutoMigrate(&APIKey{}, &APIUsage{}, &MasterUser{}, &Run{}, &RunAssignment{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("database ready", zap.String("driver", driver))
	return db, nil
}

// SaveRun stores a run and its rows in one transaction
func SaveRun(db *gorm.DB, run *Run, rows []models.Assignment) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		stored := make([]RunAssignment, len(rows))
		for i, r := range rows {
			stored[i] = RunAssignment{
				RunID:       run.ID,
				Position:    i,
				Participant: r.Participant,
				Zone:        r.Zone,
				Day:         r.Day,
				Session:     r.Session,
				Activity:    r.Activity,
			}
		}
		return tx.CreateInBatches(stored, 500).Error
	})
}

// GetRun loads a run header without its rows
func GetRun(db *gorm.DB, id string) (*Run, error) {
	var run Run
	if err := db.Where("id = ?", id).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, err
	}
	return &run, nil
}

// LoadRunAssignments returns a run's rows in output order, optionally
// restricted to the named activities
func LoadRunAssignments(db *gorm.DB, runID string, activities []string) ([]models.Assignment, error) {
	if _, err := GetRun(db, runID); err != nil {
		return nil, err
	}

	q := db.Where("run_id = ?", runID)
	if len(activities) > 0 {
		q = q.Where("activity IN ?", activities)
	}
	var stored []RunAssignment
	if err := q.Order("position").Find(&stored).Error; err != nil {
		return nil, err
	}

	rows := make([]models.Assignment, len(stored))
	for i, s := range stored {
		rows[i] = models.Assignment{
			Participant: s.Participant,
			Zone:        s.Zone,
			Day:         s.Day,
			Session:     s.Session,
			Activity:    s.Activity,
		}
	}
	return rows, nil
}
