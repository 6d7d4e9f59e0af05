// Package mcptools exposes the finance services as MCP tools so an assistant
// can read and record transactions on the signed-in user's behalf.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dgellow/finfront/internal/apierror"
	"github.com/dgellow/finfront/internal/finance"
	"github.com/dgellow/finfront/internal/log"
	"github.com/dgellow/finfront/internal/metrics"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/shopspring/decimal"
)

// Tool names
const (
	ToolListTransactions  = "list_transactions"
	ToolCreateTransaction = "create_transaction"
	ToolListAccounts      = "list_accounts"
	ToolSummary           = "summary"
	ToolChatEntry         = "chat_entry"
)

// summaryPageLimit is the page size the summary tool reads with
const summaryPageLimit = 500

// Server serves the finance tools over MCP
type Server struct {
	finance   *finance.Client
	localizer *apierror.Localizer
	metrics   *metrics.Metrics
	mcpServer *mcpserver.MCPServer
	handlers  map[string]mcpserver.ToolHandlerFunc
	now       func() time.Time
}

// NewServer registers every tool. m may be nil.
func NewServer(fc *finance.Client, l *apierror.Localizer, m *metrics.Metrics, version string) *Server {
	if l == nil {
		l = apierror.NewLocalizer("")
	}
	s := &Server{
		finance:   fc,
		localizer: l,
		metrics:   m,
		handlers:  make(map[string]mcpserver.ToolHandlerFunc),
		now:       time.Now,
	}

	s.mcpServer = mcpserver.NewMCPServer("finfront", version,
		mcpserver.WithToolCapabilities(true),
	)

	rangeOpt := mcp.WithString("range",
		mcp.Description("Date range: YYYY-MM-DD..YYYY-MM-DD, a single day, this-month or last-30-days"),
	)

	s.addTool(mcp.NewTool(ToolListTransactions,
		mcp.WithDescription("List the user's transactions, newest first"),
		mcp.WithReadOnlyHintAnnotation(true),
		rangeOpt,
		mcp.WithString("type", mcp.Description("Filter by type"), mcp.Enum("income", "expense", "transfer")),
		mcp.WithString("account_source_id", mcp.Description("Filter by wallet or bank account")),
		mcp.WithNumber("page", mcp.Description("Page number, starting at 1")),
		mcp.WithNumber("limit", mcp.Description("Page size")),
	), s.listTransactions)

	s.addTool(mcp.NewTool(ToolCreateTransaction,
		mcp.WithDescription("Record an income or expense transaction"),
		mcp.WithString("type", mcp.Required(), mcp.Enum("income", "expense")),
		mcp.WithString("amount", mcp.Required(), mcp.Description("Positive decimal amount, e.g. \"45000\" or \"12.50\"")),
		mcp.WithString("description"),
		mcp.WithString("category_id"),
		mcp.WithString("account_source_id"),
		mcp.WithString("date", mcp.Description("YYYY-MM-DD; defaults to today")),
	), s.createTransaction)

	s.addTool(mcp.NewTool(ToolListAccounts,
		mcp.WithDescription("List wallets and bank accounts with their balances"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.listAccounts)

	s.addTool(mcp.NewTool(ToolSummary,
		mcp.WithDescription("Income, expense and per-category spend over a date range"),
		mcp.WithReadOnlyHintAnnotation(true),
		rangeOpt,
	), s.summary)

	s.addTool(mcp.NewTool(ToolChatEntry,
		mcp.WithDescription("Describe a transaction in free text; the assistant proposes a draft and, with confirm, records it"),
		mcp.WithString("message", mcp.Required()),
		mcp.WithString("session_id", mcp.Description("Chat session to continue; omit to start one")),
		mcp.WithBoolean("confirm", mcp.Description("Record the proposed draft immediately")),
	), s.chatEntry)

	return s
}

// MCPServer returns the underlying server
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// ServeStdio serves until stdin closes
func (s *Server) ServeStdio() error {
	log.Logf("Serving MCP tools over stdio")
	return mcpserver.ServeStdio(s.mcpServer)
}

func (s *Server) addTool(tool mcp.Tool, fn toolFunc) {
	h := s.wrap(tool.Name, fn)
	s.handlers[tool.Name] = h
	s.mcpServer.AddTool(tool, h)
}

type toolFunc func(ctx context.Context, req mcp.CallToolRequest) (any, error)

// wrap turns a tool's result into JSON text and its error into a tool error
// carrying the localized messages
func (s *Server) wrap(name string, fn toolFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := fn(ctx, req)
		s.metrics.ObserveToolCall(name, err == nil)
		if err != nil {
			log.LogWarnWithFields("mcptools", "Tool call failed", map[string]any{
				"tool":  name,
				"kind":  string(apierror.Classify(err)),
				"error": err.Error(),
			})
			return mcp.NewToolResultError(strings.Join(s.messages(err), "\n")), nil
		}

		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding %s result: %w", name, err)
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

// messages localizes API errors; input errors are returned as written
func (s *Server) messages(err error) []string {
	if apierror.Classify(err) == apierror.KindUnknown {
		return []string{err.Error()}
	}
	return apierror.Messages(s.localizer, err)
}

func (s *Server) dateRange(req mcp.CallToolRequest) (finance.DateRange, error) {
	return finance.ParseDateRange(req.GetString("range", ""), s.now())
}

func (s *Server) listTransactions(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	rng, err := s.dateRange(req)
	if err != nil {
		return nil, err
	}
	return s.finance.Transactions.List(ctx, finance.TransactionFilter{
		Range:    rng,
		Type:     finance.TransactionType(req.GetString("type", "")),
		SourceID: req.GetString("account_source_id", ""),
		PageParams: finance.PageParams{
			Page:  req.GetInt("page", 0),
			Limit: req.GetInt("limit", 0),
		},
	})
}

func (s *Server) createTransaction(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	typ, err := req.RequireString("type")
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(req.GetArguments()["amount"])
	if err != nil {
		return nil, err
	}

	in := finance.TransactionInput{
		Type:            finance.TransactionType(typ),
		Amount:          amount,
		Description:     req.GetString("description", ""),
		CategoryID:      req.GetString("category_id", ""),
		AccountSourceID: req.GetString("account_source_id", ""),
	}
	if day := req.GetString("date", ""); day != "" {
		d, err := time.ParseInLocation(finance.DateLayout, day, s.now().Location())
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: want YYYY-MM-DD", day)
		}
		in.Date = &d
	}
	return s.finance.Transactions.Create(ctx, in)
}

func (s *Server) listAccounts(ctx context.Context, _ mcp.CallToolRequest) (any, error) {
	page, err := s.finance.AccountSources.List(ctx, finance.PageParams{})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (s *Server) summary(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	rng, err := s.dateRange(req)
	if err != nil {
		return nil, err
	}
	if rng.IsZero() {
		rng, _ = finance.ParseDateRange(finance.PresetThisMonth, s.now())
	}
	txs, err := s.finance.Transactions.All(ctx, finance.TransactionFilter{
		Range:      rng,
		PageParams: finance.PageParams{Limit: summaryPageLimit},
	})
	if err != nil {
		return nil, err
	}
	return struct {
		Range string `json:"range"`
		finance.Summary
	}{Range: rng.String(), Summary: finance.Summarize(txs)}, nil
}

type chatEntryResult struct {
	*finance.ChatReply
	Recorded *finance.Transaction `json:"recorded,omitempty"`
}

func (s *Server) chatEntry(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	message, err := req.RequireString("message")
	if err != nil {
		return nil, err
	}
	reply, err := s.finance.Chat.Send(ctx, req.GetString("session_id", ""), message)
	if err != nil {
		return nil, err
	}

	out := chatEntryResult{ChatReply: reply}
	if req.GetBool("confirm", false) && reply.Draft != nil {
		if out.Recorded, err = s.finance.Chat.Confirm(ctx, reply.SessionID, *reply.Draft); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// parseAmount accepts a decimal string or a JSON number
func parseAmount(v any) (decimal.Decimal, error) {
	var d decimal.Decimal
	var err error
	switch a := v.(type) {
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(a))
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid amount %q", a)
		}
	case float64:
		d = decimal.NewFromFloat(a)
	case nil:
		return decimal.Zero, fmt.Errorf("amount is required")
	default:
		return decimal.Zero, fmt.Errorf("invalid amount %v", v)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive")
	}
	return d, nil
}
