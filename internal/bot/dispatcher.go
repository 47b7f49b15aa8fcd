package bot

import (
	"context"
	"strings"
	"sync"

	"dorbot/config"
	"dorbot/internal/gateway"
	"dorbot/internal/models"
	"dorbot/internal/service"
	"dorbot/internal/transport"
	"dorbot/internal/util"

	"go.uber.org/zap"
)

// ResellerGateway is the remote capability surface the flows need beyond
// the saga's own purchase call.
type ResellerGateway interface {
	CheckBalance(ctx context.Context) gateway.BalanceResult
	GetAccessToken(ctx context.Context, targetNumber string) gateway.SessionResult
	RequestOTP(ctx context.Context, targetNumber string) gateway.OTPResult
	VerifyOTP(ctx context.Context, targetNumber, authID, code string) gateway.SessionResult
	CheckPackageDetail(ctx context.Context, targetNumber, accessToken string) gateway.PackageDetailResult
	CheckTransactionStatus(ctx context.Context, hesdaTrxID string) gateway.TrxStatusResult
}

// TransactionView is the read surface for history and admin lookups.
type TransactionView interface {
	GetTransaction(ctx context.Context, trxID string) (*models.Transaction, error)
	GetUserTransactions(ctx context.Context, phoneNumber string, limit int) ([]models.Transaction, error)
	GetTransactionsByStatus(ctx context.Context, status string, limit int) ([]models.Transaction, error)
	CountTransactionsByStatus(ctx context.Context) (map[string]int64, error)
}

// route maps a command name to its handler. Param routes consume the rest
// of the message as an argument; admin routes are invisible to ordinary
// senders.
type route struct {
	name    string
	param   bool
	admin   bool
	handler func(ctx context.Context, sender, args string) error
}

// Dispatcher routes inbound messages: an open conversation state wins,
// otherwise the message is parsed as a command. Message handling is
// serialized per sender.
type Dispatcher struct {
	cfg       config.BotConfig
	states    *StateStore
	ledger    *service.BalanceLedger
	catalog   *service.Catalog
	saga      *service.PurchaseSaga
	gateway   ResellerGateway
	trxs      TransactionView
	messenger transport.Messenger
	logger    *zap.Logger
	locks     *senderLocks
	routes    []route
}

// NewDispatcher creates a new command dispatcher
func NewDispatcher(
	cfg config.BotConfig,
	ledger *service.BalanceLedger,
	catalog *service.Catalog,
	saga *service.PurchaseSaga,
	gw ResellerGateway,
	trxs TransactionView,
	messenger transport.Messenger,
) *Dispatcher {
	d := &Dispatcher{
		cfg:       cfg,
		states:    NewStateStore(),
		ledger:    ledger,
		catalog:   catalog,
		saga:      saga,
		gateway:   gw,
		trxs:      trxs,
		messenger: messenger,
		logger:    util.NamedLogger("dispatcher"),
		locks:     newSenderLocks(),
	}

	d.routes = []route{
		{name: "ping", handler: d.cmdPing},
		{name: "menu", handler: d.cmdMenu},
		{name: "start", handler: d.cmdMenu},
		{name: "saldo", handler: d.cmdSaldo},
		{name: "beli", handler: d.cmdBeli},
		{name: "cekpaket", handler: d.cmdCekPaket},
		{name: "riwayat", handler: d.cmdRiwayat},

		{name: "admin", admin: true, handler: d.cmdAdminMenu},
		{name: "addsaldo", admin: true, handler: d.cmdStartAddSaldo},
		{name: "delsaldo", admin: true, handler: d.cmdStartDeleteSaldo},
		{name: "ceksaldosistem", admin: true, handler: d.cmdSystemBalance},
		{name: "stats", admin: true, handler: d.cmdStats},
		{name: "topuser", admin: true, handler: d.cmdTopUsers},
		{name: "pending", admin: true, handler: d.cmdPending},
		{name: "listpaket", admin: true, handler: d.cmdListPackages},
		{name: "cariuser", param: true, admin: true, handler: d.cmdSearchUser},
		{name: "broadcast", param: true, admin: true, handler: d.cmdBroadcast},
		{name: "resetsaldo", param: true, admin: true, handler: d.cmdResetSaldo},
		{name: "cektrx", param: true, admin: true, handler: d.cmdCheckTrx},
		{name: "addpaket", param: true, admin: true, handler: d.cmdAddPackage},
		{name: "delpaket", param: true, admin: true, handler: d.cmdDeletePackage},
		{name: "togglepaket", param: true, admin: true, handler: d.cmdTogglePackage},
	}

	return d
}

// States exposes the state store for inspection.
func (d *Dispatcher) States() *StateStore {
	return d.states
}

// HandleMessage processes one inbound message from a sender. It never
// panics outward: unexpected errors are logged and answered with a
// generic system-error message so one sender cannot take down the loop.
func (d *Dispatcher) HandleMessage(ctx context.Context, sender, text string) {
	util.MessagesReceivedTotal.Inc()

	unlock := d.locks.lock(sender)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Panic while handling message",
				zap.String("sender", sender),
				zap.Any("panic", r),
				zap.Stack("stack"))
			d.send(ctx, sender, systemErrorText)
		}
	}()

	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	if _, err := d.ledger.GetOrCreate(ctx, sender); err != nil {
		d.logger.Error("Failed to load user", zap.String("sender", sender), zap.Error(err))
		d.send(ctx, sender, systemErrorText)
		return
	}

	if st, ok := d.states.Get(sender); ok {
		if err := d.handleState(ctx, sender, text, st); err != nil {
			d.logger.Error("State handler failed",
				zap.String("sender", sender),
				zap.String("state", string(st.Kind)),
				zap.Error(err))
			d.send(ctx, sender, systemErrorText)
		}
		return
	}

	if err := d.dispatchCommand(ctx, sender, text); err != nil {
		d.logger.Error("Command handler failed",
			zap.String("sender", sender),
			zap.Error(err))
		d.send(ctx, sender, systemErrorText)
	}
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, sender, text string) error {
	if !strings.HasPrefix(text, d.cfg.Prefix) {
		return d.sendMainMenu(ctx, sender)
	}

	body := strings.TrimPrefix(text, d.cfg.Prefix)
	name := body
	args := ""
	if i := strings.IndexAny(body, " \t"); i >= 0 {
		name, args = body[:i], strings.TrimSpace(body[i+1:])
	}
	name = strings.ToLower(name)

	isAdmin := d.isAdmin(sender)
	for _, r := range d.routes {
		if r.name != name {
			continue
		}
		if r.admin && !isAdmin {
			// Privileged commands do not exist for ordinary senders.
			return d.sendMainMenu(ctx, sender)
		}
		if r.param && args == "" {
			return d.send(ctx, sender, "❌ Format: "+d.cfg.Prefix+r.name+" <parameter>")
		}
		d.logger.Info("Command dispatched",
			zap.String("sender", sender),
			zap.String("command", name),
			zap.Bool("admin", r.admin))
		return r.handler(ctx, sender, args)
	}

	return d.sendMainMenu(ctx, sender)
}

// handleState routes the message to the open state's handler. The literal
// "batal" cancels from every state here; once the saga runs it is past
// this point by construction.
func (d *Dispatcher) handleState(ctx context.Context, sender, input string, st State) error {
	if strings.EqualFold(input, "batal") {
		d.states.Clear(sender)
		return d.sendMainMenu(ctx, sender)
	}

	switch st.Kind {
	case KindSelectPackage:
		return d.handleSelectPackage(ctx, sender, input, st)
	case KindWaitingTargetNumber:
		return d.handleTargetNumber(ctx, sender, input, st)
	case KindNeedOTPConfirm:
		return d.handleOTPConfirm(ctx, sender, input, st)
	case KindWaitingOTP:
		return d.handleOTPCode(ctx, sender, input, st)
	case KindSelectPaymentMethod:
		return d.handlePaymentMethod(ctx, sender, input, st)
	case KindConfirmPurchase:
		return d.handleConfirmPurchase(ctx, sender, input, st)
	case KindCheckPackageNumber:
		return d.handleCheckPackageNumber(ctx, sender, input)
	case KindAddSaldoTarget:
		return d.handleAddSaldoTarget(ctx, sender, input)
	case KindAddSaldoAmount:
		return d.handleAddSaldoAmount(ctx, sender, input, st)
	case KindAddSaldoConfirm:
		return d.handleAddSaldoConfirm(ctx, sender, input, st)
	case KindDeleteSaldoTarget:
		return d.handleDeleteSaldoTarget(ctx, sender, input)
	case KindDeleteSaldoAmount:
		return d.handleDeleteSaldoAmount(ctx, sender, input, st)
	case KindDeleteSaldoConfirm:
		return d.handleDeleteSaldoConfirm(ctx, sender, input, st)
	default:
		d.states.Clear(sender)
		return d.sendMainMenu(ctx, sender)
	}
}

func (d *Dispatcher) isAdmin(sender string) bool {
	for _, admin := range d.cfg.AdminNumbers {
		if admin == sender {
			return true
		}
	}
	return false
}

// send delivers one outbound message. Delivery failures are logged and
// returned so a handler stops instead of advancing a flow the sender
// never saw. Side-channel notifications ignore the returned error.
func (d *Dispatcher) send(ctx context.Context, recipient, text string) error {
	if err := d.messenger.Send(ctx, recipient, text); err != nil {
		d.logger.Warn("Failed to deliver message",
			zap.String("recipient", recipient),
			zap.Error(err))
		return err
	}
	return nil
}

func (d *Dispatcher) sendMainMenu(ctx context.Context, sender string) error {
	user, err := d.ledger.GetOrCreate(ctx, sender)
	if err != nil {
		return err
	}
	return d.send(ctx, sender, d.mainMenuText(user))
}

// senderLocks serializes message handling per sender so the conversation
// state and the read-then-debit balance sequence cannot race with a second
// message from the same sender.
type senderLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSenderLocks() *senderLocks {
	return &senderLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *senderLocks) lock(key string) func() {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
