//go:build integration

package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/settlement-recon/backend/config"
	"github.com/settlement-recon/backend/internal/application/adapter"
	"github.com/settlement-recon/backend/internal/domain/entity"
	"github.com/settlement-recon/backend/internal/infra/dependency"
	"github.com/settlement-recon/backend/internal/integration/email"
	"github.com/settlement-recon/backend/internal/integration/persistence/model"
	"github.com/settlement-recon/backend/internal/integration/processor"
	"github.com/settlement-recon/backend/test/integration/mock"
)

const testJWTSecret = "test-jwt-secret-key-for-testing-purposes"

var tags string

func init() {
	flag.StringVar(&tags, "scenarios", "", "tags to run")
}

func TestFeatures(t *testing.T) {
	flag.Parse()

	suite := godog.TestSuite{
		ScenarioInitializer: func(s *godog.ScenarioContext) {
			InitializeScenario(s)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"../features"},
			Tags:     tags,
			Strict:   true,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

type testContext struct {
	uri         string
	headers     map[string]string
	client      *http.Client
	response    *response
	db          *mock.Db
	accessToken string
}

type response struct {
	status int
	body   any
	raw    string
}

var (
	envInit      sync.Once
	serverInit   sync.Once
	testServer   *testEnvironment
	placeholders = regexp.MustCompile(`\{\{(entry|exception):([^}]+)\}\}`)
)

// testEnvironment is shared by every scenario; state is reset in before().
type testEnvironment struct {
	port     int
	db       *mock.Db
	stripe   *mock.StripeMock
	mailer   *email.MockEmailSender
	injector *dependency.Injector
}

func initializeEnvironment() *testEnvironment {
	envInit.Do(func() {
		port := findAvailablePort()
		_ = os.Setenv("SERVER_PORT", strconv.Itoa(port))
		_ = os.Setenv("ENV", "test")
		_ = os.Setenv("JWT_SECRET", testJWTSecret)
		_ = os.Setenv("ALERT_RECIPIENTS", "finance-ops@example.com")
		_ = os.Setenv("RECONCILIATION_RUNS_PER_MINUTE", "1000")

		cfg := config.Load()
		db := mock.NewDb(model.AllModels())
		stripeMock := mock.NewStripeServer()
		mailer := email.NewMockEmailSender()

		injector, err := dependency.NewInjector(cfg, db.DbConn, dependency.Options{
			Redis:       mock.NewRedis(),
			Registry:    prometheus.NewRegistry(),
			Feed:        processor.NewStripeFeedWithBackend("sk_test_integration", stripeMock.Backend()),
			EmailSender: mailer,
		}, nil)
		if err != nil {
			panic(fmt.Sprintf("failed to wire test dependencies: %v", err))
		}

		testServer = &testEnvironment{
			port:     port,
			db:       db,
			stripe:   stripeMock,
			mailer:   mailer,
			injector: injector,
		}
	})
	return testServer
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	env := initializeEnvironment()

	test := &testContext{
		uri:    fmt.Sprintf("http://localhost:%d", env.port),
		client: &http.Client{Timeout: 10 * time.Second},
		db:     env.db,
	}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		return ctx, test.before()
	})

	// Background steps
	ctx.Given(`^the API server is running$`, test.theAPIServerIsRunning)

	// Authentication steps
	ctx.Given(`^I am authenticated as (operator|viewer) "([^"]*)"$`, test.iAmAuthenticatedAs)
	ctx.Given(`^I am authenticated with an expired token$`, test.iAmAuthenticatedWithAnExpiredToken)

	// Data setup steps
	ctx.Given(`^the following ledger entries exist:$`, test.theFollowingLedgerEntriesExist)
	ctx.Given(`^the following processor transactions exist:$`, test.theFollowingProcessorTransactionsExist)
	ctx.Given(`^customer "([^"]*)" has receivable account "([^"]*)"$`, test.customerHasReceivableAccount)
	ctx.Given(`^Stripe returns the balance transactions:$`, test.stripeReturnsTheBalanceTransactions)
	ctx.Given(`^Stripe responds with status (\d+)$`, test.stripeRespondsWithStatus)

	// Header steps
	ctx.Given(`^the header is empty$`, test.theHeaderIsEmpty)
	ctx.Given(`^the header contains the key "([^"]*)" with "([^"]*)"$`, test.theHeaderContainsTheKeyWith)

	// Action steps
	ctx.When(`^the processor sync runs$`, test.theProcessorSyncRuns)
	ctx.When(`^I send a "([^"]*)" request to "([^"]*)"$`, test.iSendARequestTo)
	ctx.When(`^I send a "([^"]*)" request to "([^"]*)" with body:$`, test.iSendARequestToWithBody)

	// Response assertion steps
	ctx.Then(`^the response status should be (\d+)$`, test.theResponseStatusShouldBe)
	ctx.Then(`^the response should be JSON$`, test.theResponseShouldBeJSON)
	ctx.Then(`^the response should contain "([^"]*)"$`, test.theResponseShouldContain)
	ctx.Then(`^the response field "([^"]*)" should be "([^"]*)"$`, test.theResponseFieldShouldBe)
	ctx.Then(`^the response field "([^"]*)" should exist$`, test.theResponseFieldShouldExist)
	ctx.Then(`^the response field "([^"]*)" should have (\d+) items?$`, test.theResponseFieldShouldHaveItems)
	ctx.Then(`^the response body should include "([^"]*)"$`, test.theResponseBodyShouldInclude)

	// Side effect assertion steps
	ctx.Then(`^(\d+) alert emails? should have been sent$`, test.alertEmailsShouldHaveBeenSent)
	ctx.Then(`^the last alert email subject should contain "([^"]*)"$`, test.theLastAlertEmailSubjectShouldContain)

	// Database assertion steps
	ctx.Then(`^the db should contain (\d+) objects in the "([^"]*)" table$`, test.theDbShouldContainObjectsInTheTable)
	ctx.Then(`^the db should contain (\d+) objects in "([^"]*)" with the values$`, test.theDbShouldContainObjectsInWithTheValues)
}

func findAvailablePort() int {
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		panic(err)
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port
}

func (t *testContext) before() error {
	t.headers = make(map[string]string)
	t.accessToken = ""
	t.response = nil

	testServer.stripe.Reset()
	testServer.mailer.Reset()

	if err := mock.ClearRedis(mock.NewRedis()); err != nil {
		return err
	}
	return t.db.ClearDB()
}

func (t *testContext) startServer() {
	serverInit.Do(func() {
		engine := testServer.injector.Router.Setup("test")
		server := &http.Server{
			Addr:    fmt.Sprintf(":%d", testServer.port),
			Handler: engine,
		}

		go func() {
			_ = server.ListenAndServe()
		}()
	})

	// Wait for server to be ready
	for i := 0; i < 50; i++ {
		resp, err := http.Get(t.uri + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func (t *testContext) theAPIServerIsRunning() error {
	t.startServer()
	return nil
}

func (t *testContext) iAmAuthenticatedAs(role, operator string) error {
	token, err := testServer.injector.TokenService.IssueToken(operator, role, time.Hour)
	if err != nil {
		return err
	}
	t.accessToken = token
	return nil
}

func (t *testContext) iAmAuthenticatedWithAnExpiredToken() error {
	token, err := testServer.injector.TokenService.IssueToken("alice", adapter.RoleOperator, -time.Minute)
	if err != nil {
		return err
	}
	t.accessToken = token
	return nil
}

// theFollowingLedgerEntriesExist posts one balanced entry per row, debiting cash and crediting revenue.
func (t *testContext) theFollowingLedgerEntriesExist(table *godog.Table) error {
	rows, err := tableRows(table)
	if err != nil {
		return err
	}

	for _, row := range rows {
		date, err := time.Parse("2006-01-02", row["date"])
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", row["date"], err)
		}
		amount, err := strconv.ParseInt(row["amount"], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", row["amount"], err)
		}
		status := row["status"]
		if status == "" {
			status = string(entity.LedgerEntryStatusPosted)
		}

		entry := &entity.LedgerEntry{
			ID:          uuid.New(),
			EntryNumber: row["entry_number"],
			Description: row["description"],
			Date:        date.Add(12 * time.Hour),
			Status:      entity.LedgerEntryStatus(status),
			Lines: []entity.LedgerLine{
				{AccountID: "1000-cash", Direction: entity.DirectionDebit, Amount: amount},
				{AccountID: "4000-revenue", Direction: entity.DirectionCredit, Amount: amount},
			},
			Source:    "integration",
			CreatedAt: time.Now().UTC(),
		}

		if result := t.db.DbConn.Create(model.LedgerEntryFromEntity(entry)); result.Error != nil {
			return result.Error
		}
	}
	return nil
}

func (t *testContext) theFollowingProcessorTransactionsExist(table *godog.Table) error {
	rows, err := tableRows(table)
	if err != nil {
		return err
	}

	for _, row := range rows {
		created, err := time.Parse("2006-01-02", row["created_at"])
		if err != nil {
			return fmt.Errorf("invalid created_at %q: %w", row["created_at"], err)
		}
		amount, err := strconv.ParseInt(row["amount"], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", row["amount"], err)
		}

		tx := &model.ProcessorTransactionModel{
			ID:          row["id"],
			Amount:      amount,
			Currency:    valueOr(row["currency"], "usd"),
			Net:         amount,
			Status:      valueOr(row["status"], string(entity.ProcessorStatusAvailable)),
			Kind:        valueOr(row["kind"], string(entity.ProcessorKindCharge)),
			CreatedAt:   created.Add(12 * time.Hour),
			AvailableOn: created.Add(12 * time.Hour),
			Description: row["description"],
			ReturnCode:  row["return_code"],
			CustomerID:  row["customer_id"],
		}

		if result := t.db.DbConn.Create(tx); result.Error != nil {
			return result.Error
		}
	}
	return nil
}

func (t *testContext) customerHasReceivableAccount(customerID, accountID string) error {
	return testServer.injector.Customers.Register(context.Background(), customerID, accountID)
}

func (t *testContext) stripeReturnsTheBalanceTransactions(content *godog.DocString) error {
	var transactions []map[string]any
	if err := json.Unmarshal([]byte(content.Content), &transactions); err != nil {
		return err
	}
	testServer.stripe.SetTransactions(transactions)
	return nil
}

func (t *testContext) stripeRespondsWithStatus(status int) error {
	testServer.stripe.SetStatus(status)
	return nil
}

func (t *testContext) theProcessorSyncRuns() error {
	if testServer.injector.SyncWorker == nil {
		return errors.New("processor sync worker is not configured")
	}
	testServer.injector.SyncWorker.SyncNow(context.Background())
	return nil
}

func (t *testContext) theHeaderIsEmpty() error {
	t.headers = make(map[string]string)
	return nil
}

func (t *testContext) theHeaderContainsTheKeyWith(key, value string) error {
	t.headers[key] = t.replacePlaceholders(value)
	return nil
}

func (t *testContext) iSendARequestTo(method, path string) error {
	path = t.replacePlaceholders(path)
	return t.executeRequest(method, path, nil)
}

func (t *testContext) iSendARequestToWithBody(method, path string, body *godog.DocString) error {
	path = t.replacePlaceholders(path)

	var payload []byte
	if body != nil && body.Content != "" {
		payload = []byte(t.replacePlaceholders(body.Content))
	}
	return t.executeRequest(method, path, payload)
}

// replacePlaceholders resolves {{entry:<entry number>}} and {{exception:<transaction id>}}
// to the ids stored in the database.
func (t *testContext) replacePlaceholders(content string) string {
	return placeholders.ReplaceAllStringFunc(content, func(match string) string {
		parts := placeholders.FindStringSubmatch(match)
		kind, key := parts[1], parts[2]

		switch kind {
		case "entry":
			var entry model.LedgerEntryModel
			if err := t.db.DbConn.Where("entry_number = ?", key).First(&entry).Error; err == nil {
				return entry.ID.String()
			}
		case "exception":
			var exception model.ExceptionModel
			if err := t.db.DbConn.Where("transaction_id = ?", key).Order("created_at").First(&exception).Error; err == nil {
				return exception.ID.String()
			}
		}
		return match
	})
}

func (t *testContext) executeRequest(method, path string, payload []byte) error {
	var req *http.Request
	var err error

	url := t.uri + path

	if payload != nil {
		req, err = http.NewRequest(method, url, bytes.NewReader(payload))
	} else {
		req, err = http.NewRequest(method, url, nil)
	}
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	if t.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.accessToken)
	}

	for key, value := range t.headers {
		req.Header.Set(key, value)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	t.response = &response{
		status: resp.StatusCode,
		raw:    string(bodyBytes),
	}

	var responseBody map[string]any
	if err := json.Unmarshal(bodyBytes, &responseBody); err != nil {
		t.response.body = string(bodyBytes)
	} else {
		t.response.body = responseBody
	}

	return nil
}

func (t *testContext) theResponseStatusShouldBe(expectedStatus int) error {
	if t.response == nil {
		return errors.New("no response received")
	}
	if t.response.status != expectedStatus {
		return fmt.Errorf("expected status %d, got %d (body: %v)", expectedStatus, t.response.status, t.response.body)
	}
	return nil
}

func (t *testContext) theResponseShouldBeJSON() error {
	if t.response == nil {
		return errors.New("no response received")
	}
	if _, ok := t.response.body.(map[string]any); !ok {
		return fmt.Errorf("response is not JSON: %v", t.response.body)
	}
	return nil
}

func (t *testContext) theResponseShouldContain(field string) error {
	body, err := t.jsonBody()
	if err != nil {
		return err
	}

	if _, exists := body[field]; !exists {
		return fmt.Errorf("response does not contain field '%s': %v", field, body)
	}
	return nil
}

func (t *testContext) theResponseFieldShouldBe(field, expectedValue string) error {
	body, err := t.jsonBody()
	if err != nil {
		return err
	}

	value := getFieldValue(body, field)
	if value == nil {
		return fmt.Errorf("field '%s' not found in response: %v", field, body)
	}

	actualValue := fmt.Sprintf("%v", value)
	if actualValue != expectedValue {
		return fmt.Errorf("field '%s' expected '%s', got '%s'", field, expectedValue, actualValue)
	}
	return nil
}

func (t *testContext) theResponseFieldShouldExist(field string) error {
	body, err := t.jsonBody()
	if err != nil {
		return err
	}

	if getFieldValue(body, field) == nil {
		return fmt.Errorf("field '%s' not found in response: %v", field, body)
	}
	return nil
}

func (t *testContext) theResponseFieldShouldHaveItems(field string, quantity int) error {
	body, err := t.jsonBody()
	if err != nil {
		return err
	}

	value := getFieldValue(body, field)
	if value == nil && quantity == 0 {
		return nil
	}
	items, ok := value.([]any)
	if !ok {
		return fmt.Errorf("field '%s' is not a list: %v", field, value)
	}
	if len(items) != quantity {
		return fmt.Errorf("field '%s' expected %d items, got %d", field, quantity, len(items))
	}
	return nil
}

func (t *testContext) theResponseBodyShouldInclude(text string) error {
	if t.response == nil {
		return errors.New("no response received")
	}
	if !strings.Contains(t.response.raw, text) {
		return fmt.Errorf("response body does not include %q", text)
	}
	return nil
}

func (t *testContext) jsonBody() (map[string]any, error) {
	if t.response == nil {
		return nil, errors.New("no response received")
	}
	body, ok := t.response.body.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("response is not a JSON object: %v", t.response.body)
	}
	return body, nil
}

func (t *testContext) alertEmailsShouldHaveBeenSent(quantity int) error {
	sent := testServer.mailer.SentEmails()
	if len(sent) != quantity {
		return fmt.Errorf("expected %d alert emails, got %d", quantity, len(sent))
	}
	return nil
}

func (t *testContext) theLastAlertEmailSubjectShouldContain(text string) error {
	sent := testServer.mailer.SentEmails()
	if len(sent) == 0 {
		return errors.New("no alert email was sent")
	}
	if subject := sent[len(sent)-1].Subject; !strings.Contains(subject, text) {
		return fmt.Errorf("alert subject %q does not contain %q", subject, text)
	}
	return nil
}

func (t *testContext) theDbShouldContainObjectsInTheTable(quantity int, table string) error {
	if entity, ok := t.db.GetModel(table); ok {
		entityType := reflect.TypeOf(entity).Elem()
		entitySlice := reflect.MakeSlice(reflect.SliceOf(entityType), 0, 0)
		entitySlicePtr := reflect.New(entitySlice.Type())
		entitySlicePtr.Elem().Set(entitySlice)

		result := t.db.DbConn.Find(entitySlicePtr.Interface())
		if result.Error != nil {
			return result.Error
		}

		count := entitySlicePtr.Elem().Len()
		if count != quantity {
			return fmt.Errorf("expected %d objects in '%s', got %d", quantity, table, count)
		}
		return nil
	}
	return fmt.Errorf("table '%s' not found in models", table)
}

func (t *testContext) theDbShouldContainObjectsInWithTheValues(quantity int, table string, content *godog.DocString) error {
	var criteria map[string]any
	if err := json.Unmarshal([]byte(t.replacePlaceholders(content.Content)), &criteria); err != nil {
		return err
	}

	if entity, ok := t.db.GetModel(table); ok {
		entityType := reflect.TypeOf(entity).Elem()
		entitySlice := reflect.MakeSlice(reflect.SliceOf(entityType), 0, 0)
		entitySlicePtr := reflect.New(entitySlice.Type())
		entitySlicePtr.Elem().Set(entitySlice)

		query := t.db.DbConn
		for key, value := range criteria {
			query = query.Where(fmt.Sprintf("%s = ?", key), value)
		}

		result := query.Find(entitySlicePtr.Interface())
		if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return result.Error
		}

		count := entitySlicePtr.Elem().Len()
		if count != quantity {
			return fmt.Errorf("expected %d objects in '%s' with criteria %v, got %d", quantity, table, criteria, count)
		}
		return nil
	}
	return fmt.Errorf("table '%s' not found in models", table)
}

func getFieldValue(object any, dotSeparatedField string) any {
	if object == nil {
		return nil
	}

	var objectMap map[string]any
	switch v := object.(type) {
	case map[string]any:
		objectMap = v
	default:
		objectJSON, _ := json.Marshal(object)
		if err := json.Unmarshal(objectJSON, &objectMap); err != nil {
			return nil
		}
	}

	fields := strings.Split(dotSeparatedField, ".")
	var field any = objectMap

	for _, currentField := range fields {
		if field == nil {
			return nil
		}

		if i, err := strconv.Atoi(currentField); err == nil {
			if arr, ok := field.([]any); ok && i < len(arr) {
				field = arr[i]
			} else {
				return nil
			}
		} else {
			if m, ok := field.(map[string]any); ok {
				field = m[currentField]
			} else {
				return nil
			}
		}
	}

	return field
}

// tableRows maps each data row to its header cells.
func tableRows(table *godog.Table) ([]map[string]string, error) {
	if table == nil || len(table.Rows) < 1 {
		return nil, errors.New("table needs a header row")
	}

	header := table.Rows[0].Cells
	rows := make([]map[string]string, 0, len(table.Rows)-1)
	for _, row := range table.Rows[1:] {
		if len(row.Cells) != len(header) {
			return nil, fmt.Errorf("row has %d cells, header has %d", len(row.Cells), len(header))
		}
		values := make(map[string]string, len(header))
		for i, cell := range row.Cells {
			values[header[i].Value] = strings.TrimSpace(cell.Value)
		}
		rows = append(rows, values)
	}
	return rows, nil
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
