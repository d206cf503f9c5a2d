// End-to-end tests against a real Postgres. They boot the full fx graph,
// serve it over httptest and drive the HTTP surface the way the payroll
// frontend and the payment gateways do.
//
// Set PAYLANKA_E2E=1 and point DATABASE_* at a disposable database to run.
package e2e

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/paylanka/paylanka/internal/access"
	"github.com/paylanka/paylanka/internal/clock"
	"github.com/paylanka/paylanka/internal/config"
	"github.com/paylanka/paylanka/internal/events"
	"github.com/paylanka/paylanka/internal/invoice"
	"github.com/paylanka/paylanka/internal/logger"
	"github.com/paylanka/paylanka/internal/migration"
	"github.com/paylanka/paylanka/internal/payment"
	"github.com/paylanka/paylanka/internal/payrollrates"
	"github.com/paylanka/paylanka/internal/plan"
	"github.com/paylanka/paylanka/internal/scheduler"
	"github.com/paylanka/paylanka/internal/seed"
	"github.com/paylanka/paylanka/internal/server"
	"github.com/paylanka/paylanka/internal/subscription"
	"github.com/paylanka/paylanka/internal/tax"
	"github.com/paylanka/paylanka/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type testEnv struct {
	app       *fx.App
	server    *server.Server
	db        *gorm.DB
	cfg       config.Config
	node      *snowflake.Node
	scheduler *scheduler.Scheduler
	baseURL   string
	httpSrv   *httptest.Server
}

var env *testEnv

func TestMain(m *testing.M) {
	if strings.TrimSpace(os.Getenv("PAYLANKA_E2E")) == "" {
		fmt.Println("skipping e2e: PAYLANKA_E2E not set")
		os.Exit(0)
	}

	gin.SetMode(gin.TestMode)
	setDefaultEnv()

	var err error
	env, err = startEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to start test environment:", err)
		os.Exit(1)
	}

	code := m.Run()
	env.shutdown()
	os.Exit(code)
}

func setDefaultEnv() {
	setEnvIfEmpty("ENVIRONMENT", "test")
	setEnvIfEmpty("LOG_LEVEL", "error")
	setEnvIfEmpty("DATABASE_NAME", "paylanka_e2e")
	setEnvIfEmpty("PAYHERE_MERCHANT_ID", "1211149")
	setEnvIfEmpty("PAYHERE_MERCHANT_SECRET", "e2e_merchant_secret")
	setEnvIfEmpty("PAYHERE_NOTIFY_URL", "https://billing.example.lk/payments/payhere/webhook")
	setEnvIfEmpty("PAYHERE_RETURN_URL", "https://app.example.lk/billing/return")
	setEnvIfEmpty("PAYHERE_CANCEL_URL", "https://app.example.lk/billing/cancel")
}

func setEnvIfEmpty(key, value string) {
	if strings.TrimSpace(os.Getenv(key)) != "" {
		return
	}
	_ = os.Setenv(key, value)
}

func startEnv() (*testEnv, error) {
	var (
		srv    *server.Server
		dbConn *gorm.DB
		cfg    config.Config
		node   *snowflake.Node
		sched  *scheduler.Scheduler
	)

	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(func() *snowflake.Node {
			n, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return n
		}),
		db.Module,
		clock.Module,
		events.Module,
		plan.Module,
		payrollrates.Module,
		tax.Module,
		subscription.Module,
		invoice.Module,
		payment.Module,
		access.Module,
		fx.Provide(scheduler.New),
		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Populate(&srv, &dbConn, &cfg, &node, &sched),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return nil, err
	}

	if strings.ToLower(strings.TrimSpace(cfg.DBType)) != "postgres" {
		_ = app.Stop(context.Background())
		return nil, fmt.Errorf("expected postgres db, got %s", cfg.DBType)
	}

	sqlDB, err := dbConn.DB()
	if err != nil {
		_ = app.Stop(context.Background())
		return nil, err
	}
	if err := migration.RunMigrations(sqlDB); err != nil {
		_ = app.Stop(context.Background())
		return nil, err
	}

	httpSrv := httptest.NewServer(srv.Engine())

	return &testEnv{
		app:       app,
		server:    srv,
		db:        dbConn,
		cfg:       cfg,
		node:      node,
		scheduler: sched,
		baseURL:   httpSrv.URL,
		httpSrv:   httpSrv,
	}, nil
}

func (e *testEnv) shutdown() {
	if e == nil {
		return
	}
	if e.httpSrv != nil {
		e.httpSrv.Close()
	}
	if e.app != nil {
		_ = e.app.Stop(context.Background())
	}
}

func resetDatabase(t *testing.T, dbConn *gorm.DB) {
	t.Helper()
	if err := truncateAllTables(dbConn); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	if err := seed.EnsureDefaults(dbConn, env.node); err != nil {
		t.Fatalf("seed default plans and rates: %v", err)
	}
}

func truncateAllTables(dbConn *gorm.DB) error {
	type tableRow struct {
		Name string `gorm:"column:tablename"`
	}
	var rows []tableRow
	if err := dbConn.Raw(
		`SELECT tablename FROM pg_tables WHERE schemaname = 'public' AND tablename <> 'schema_migrations'`,
	).Scan(&rows).Error; err != nil {
		return err
	}

	tables := make([]string, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row.Name) == "" {
			continue
		}
		tables = append(tables, `"`+row.Name+`"`)
	}
	if len(tables) == 0 {
		return nil
	}

	stmt := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(tables, ", "))
	return dbConn.Exec(stmt).Error
}

func seedUser(t *testing.T) string {
	t.Helper()
	id := env.node.Generate()
	err := env.db.Exec(
		`INSERT INTO users (id, email, is_email_verified, is_password_set) VALUES (?, ?, TRUE, TRUE)`,
		id.Int64(), fmt.Sprintf("owner-%s@example.lk", id.String()),
	).Error
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id.String()
}

func seedCompanyWithEmployees(t *testing.T, userID string, active, resigned int) {
	t.Helper()
	ownerID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		t.Fatalf("parse user id: %v", err)
	}
	companyID := env.node.Generate().Int64()
	if err := env.db.Exec(
		`INSERT INTO companies (id, owner_id, name) VALUES (?, ?, ?)`,
		companyID, ownerID, "Colombo Tea Exports",
	).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}
	for i := 0; i < active+resigned; i++ {
		status := "ACTIVE"
		if i >= active {
			status = "RESIGNED"
		}
		if err := env.db.Exec(
			`INSERT INTO employees (id, company_id, status) VALUES (?, ?, ?)`,
			env.node.Generate().Int64(), companyID, status,
		).Error; err != nil {
			t.Fatalf("seed employee: %v", err)
		}
	}
}

func doJSON(t *testing.T, method, reqURL string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, reqURL, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, reqURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, raw
}

func decodeJSON(t *testing.T, raw []byte, out any) {
	t.Helper()
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode response: %v: %s", err, string(raw))
	}
}

func userHeaders(userID string) map[string]string {
	return map[string]string{"X-User-ID": userID}
}

// signNotify reproduces the md5sig PayHere sends on its notify callback.
func signNotify(merchantID, orderID, amount, currency, statusCode, secret string) string {
	inner := fmt.Sprintf("%X", md5.Sum([]byte(secret)))
	outer := md5.Sum([]byte(merchantID + orderID + amount + currency + statusCode + inner))
	return fmt.Sprintf("%X", outer)
}

func postPayHereNotify(t *testing.T, form url.Values) *http.Response {
	t.Helper()
	resp, err := http.Post(
		env.baseURL+"/payments/payhere/webhook",
		"application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		t.Fatalf("post notify: %v", err)
	}
	resp.Body.Close()
	return resp
}

func TestE2E_HealthCheck(t *testing.T) {
	resp, err := http.Get(env.baseURL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
}
