//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"academy_site/internal/domain"
	mysqlrepo "academy_site/internal/storage/mysql"
)

// migrationsDir honors MIGRATIONS_DIR and falls back to the repo's migrations/.
func migrationsDir(t *testing.T) string {
	t.Helper()
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return filepath.Join("..", "..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir(t)

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir %s: %v", dir, err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	// Isolated MySQL; let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=academy",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/academy?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	applyMigrations(t, db)
	return db
}

func TestRepo_MySQL_LeadOutbox(t *testing.T) {
	repo := mysqlrepo.New(startMySQL(t))
	ctx := context.Background()

	first, err := repo.InsertLead(ctx, domain.Lead{
		FullName: "Snehal Patil",
		Email:    "snehal@example.com",
		Phone:    "+919822012345",
		Type:     domain.LeadContact,
		Interest: "Full Stack Java",
	}, "10.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("InsertLead: %v", err)
	}
	second, err := repo.InsertLead(ctx, domain.Lead{
		FullName: "Rohit Deshmukh",
		Email:    "rohit@example.com",
		Type:     domain.LeadBrochure,
	}, "", "")
	if err != nil {
		t.Fatalf("InsertLead: %v", err)
	}

	got, err := repo.GetLead(ctx, first)
	if err != nil {
		t.Fatalf("GetLead: %v", err)
	}
	if got.Lead.FullName != "Snehal Patil" || got.Lead.Interest != "Full Stack Java" || got.Status != domain.LeadPending || got.RemoteIP != "10.0.0.1" {
		t.Fatalf("unexpected lead: %+v", got)
	}

	pending, err := repo.ListPending(ctx, 10, 3)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != first || pending[1].ID != second {
		t.Fatalf("expected both leads oldest first, got %+v", pending)
	}

	if err := repo.MarkDelivered(ctx, first); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if err := repo.MarkFailed(ctx, second, "crm: remote 503", false); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	pending, err = repo.ListPending(ctx, 10, 3)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != second || pending[0].Attempts != 1 || pending[0].LastError == nil {
		t.Fatalf("expected only the retried lead, got %+v", pending)
	}

	if err := repo.MarkFailed(ctx, second, "crm: rejected", true); err != nil {
		t.Fatalf("MarkFailed permanent: %v", err)
	}
	if pending, _ = repo.ListPending(ctx, 10, 3); len(pending) != 0 {
		t.Fatalf("permanently failed lead still pending: %+v", pending)
	}
	failed, err := repo.GetLead(ctx, second)
	if err != nil {
		t.Fatalf("GetLead: %v", err)
	}
	if failed.Status != domain.LeadFailed || failed.Attempts != 2 || failed.LastError == nil || *failed.LastError != "crm: rejected" {
		t.Fatalf("expected failed lead with last error, got %+v", failed)
	}

	delivered, _ := repo.GetLead(ctx, first)
	if delivered.Status != domain.LeadDelivered || delivered.DeliveredAt == nil {
		t.Fatalf("expected delivered lead, got %+v", delivered)
	}

	if _, err := repo.GetLead(ctx, 999999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.MarkDelivered(ctx, 999999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on missing id, got %v", err)
	}
}
