package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/models"
	"github.com/mmdatafocus/retail_backend/utils"
	"github.com/mmdatafocus/retail_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func TestConcurrentDuplicateIdempotencyKeysExecuteOnce(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegrationEnv(t)
	logger := logrus.New()

	var executions int32
	fn := func(ctx context.Context) (int, []byte, error) {
		// widen the race window so duplicates really overlap
		time.Sleep(100 * time.Millisecond)
		atomic.AddInt32(&executions, 1)
		return http.StatusOK, []byte(`{"posted":true}`), nil
	}

	const clients = 6
	results := make([]*workflow.ExecuteResult, clients)
	errs := make([]error, clients)
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for attempt := 0; attempt < 100; attempt++ {
				res, err := workflow.Execute(ctx, logger, "POST /postings", "dup-key-1", "", fn)
				var conflict *utils.ConflictError
				if errors.As(err, &conflict) {
					// a duplicate in flight is rejected, never executed twice
					time.Sleep(50 * time.Millisecond)
					continue
				}
				results[i], errs[i] = res, err
				return
			}
			errs[i] = errors.New("still conflicting after retries")
		}(i)
	}
	wg.Wait()

	for i := 0; i < clients; i++ {
		if errs[i] != nil {
			t.Fatalf("client %d: %v", i, errs[i])
		}
		if results[i].StatusCode != http.StatusOK {
			t.Fatalf("client %d: expected 200, got %d", i, results[i].StatusCode)
		}
		if string(results[i].Body) != `{"posted":true}` {
			t.Fatalf("client %d: unexpected body %q", i, results[i].Body)
		}
	}
	if got := atomic.LoadInt32(&executions); got != 1 {
		t.Fatalf("expected exactly one execution across %d duplicate clients, got %d", clients, got)
	}
	replayed := 0
	for _, r := range results {
		if r.Replayed {
			replayed++
		}
	}
	if replayed != clients-1 {
		t.Fatalf("expected %d replays, got %d", clients-1, replayed)
	}
}

func TestReceiveTransferOrderPartialReceiptTracksShortfall(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegrationEnv(t)
	logger := logrus.New()

	branch, err := models.CreateBranch(ctx, &models.NewBranch{Name: "Main"})
	if err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	source, err := models.CreateWarehouse(ctx, &models.NewWarehouse{BranchId: branch.ID, Name: "Central"})
	if err != nil {
		t.Fatalf("CreateWarehouse(source): %v", err)
	}
	dest, err := models.CreateWarehouse(ctx, &models.NewWarehouse{BranchId: branch.ID, Name: "Downtown"})
	if err != nil {
		t.Fatalf("CreateWarehouse(dest): %v", err)
	}
	variant, err := models.CreateProductVariant(ctx, &models.NewProductVariant{Name: "Espresso Beans 1kg", Sku: "BEAN-1KG", Unit: "bag"})
	if err != nil {
		t.Fatalf("CreateProductVariant: %v", err)
	}

	// default SOD rules: checker and sender must differ from the creator
	maker, err := models.CreateUser(ctx, &models.NewUser{Name: "Maker", Role: models.UserRoleManager, BranchId: branch.ID})
	if err != nil {
		t.Fatalf("CreateUser(maker): %v", err)
	}
	mover, err := models.CreateUser(ctx, &models.NewUser{Name: "Mover", Role: models.UserRoleManager, BranchId: branch.ID})
	if err != nil {
		t.Fatalf("CreateUser(mover): %v", err)
	}
	asUser := func(id int) context.Context {
		c := utils.SetUserIdInContext(ctx, id)
		return utils.SetUserRoleInContext(c, string(models.UserRoleManager))
	}

	if _, err := workflow.PostOpeningStock(asUser(maker.ID), logger, &workflow.OpeningStockInput{
		WarehouseId: source.ID,
		Lines:       []workflow.OpeningStockLine{{VariantId: variant.ID, Qty: decimal.NewFromInt(100)}},
	}); err != nil {
		t.Fatalf("PostOpeningStock: %v", err)
	}

	makerCtx := utils.SetBranchIdInContext(asUser(maker.ID), branch.ID)
	order, err := models.CreateTransferOrder(makerCtx, &models.NewTransferOrder{
		SourceWarehouseId:      source.ID,
		DestinationWarehouseId: dest.ID,
		Details:                []models.NewTransferOrderDetail{{VariantId: variant.ID, Qty: decimal.NewFromInt(100)}},
	})
	if err != nil {
		t.Fatalf("CreateTransferOrder: %v", err)
	}
	if _, err := workflow.CheckTransferOrder(asUser(mover.ID), logger, order.ID); err != nil {
		t.Fatalf("CheckTransferOrder: %v", err)
	}
	if _, err := workflow.SendTransferOrder(asUser(mover.ID), logger, order.ID); err != nil {
		t.Fatalf("SendTransferOrder: %v", err)
	}

	sourceAfterSend, err := workflow.CurrentBalance(ctx, source.ID, variant.ID)
	if err != nil {
		t.Fatalf("CurrentBalance(source, after send): %v", err)
	}
	if !sourceAfterSend.IsZero() {
		t.Fatalf("expected source balance 0 after send, got %s", sourceAfterSend)
	}

	received, err := workflow.ReceiveTransferOrder(asUser(mover.ID), logger, order.ID, &workflow.ReceiveTransferInput{
		Lines: []workflow.ReceiveTransferLine{{DetailId: order.Details[0].ID, QtyReceived: decimal.NewFromInt(80)}},
	})
	if err != nil {
		t.Fatalf("ReceiveTransferOrder: %v", err)
	}
	if received.Status != models.TransferOrderStatusPartiallyReceived {
		t.Fatalf("expected status PartiallyReceived, got %s", received.Status)
	}

	destBalance, err := workflow.CurrentBalance(ctx, dest.ID, variant.ID)
	if err != nil {
		t.Fatalf("CurrentBalance(dest): %v", err)
	}
	if destBalance.Cmp(decimal.NewFromInt(80)) != 0 {
		t.Fatalf("expected destination balance 80, got %s", destBalance)
	}
	sourceBalance, err := workflow.CurrentBalance(ctx, source.ID, variant.ID)
	if err != nil {
		t.Fatalf("CurrentBalance(source): %v", err)
	}
	if !sourceBalance.IsZero() {
		t.Fatalf("expected source balance 0, got %s", sourceBalance)
	}

	stored, err := models.GetTransferOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetTransferOrder: %v", err)
	}
	if len(stored.Details) != 1 {
		t.Fatalf("expected 1 detail, got %d", len(stored.Details))
	}
	if stored.Details[0].QtyReceived.Cmp(decimal.NewFromInt(80)) != 0 {
		t.Fatalf("expected qty_received 80, got %s", stored.Details[0].QtyReceived)
	}
	if stored.Details[0].Shortfall().Cmp(decimal.NewFromInt(20)) != 0 {
		t.Fatalf("expected shortfall 20, got %s", stored.Details[0].Shortfall())
	}
}

// setupIntegrationEnv boots throwaway redis and mysql containers, wires the
// config env, migrates a fresh schema and creates one business.
func setupIntegrationEnv(t *testing.T) context.Context {
	t.Helper()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "retail_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")

	biz, err := models.CreateBusiness(ctx, &models.NewBusiness{Name: "Test Retail"})
	if err != nil {
		t.Fatalf("CreateBusiness: %v", err)
	}
	return utils.SetBusinessIdInContext(ctx, biz.Id)
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("retail-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("retail-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=retail_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
