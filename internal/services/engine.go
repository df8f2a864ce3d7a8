package stamps

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	interf "github.com/glkeru/loyalty/stamps/internal/interfaces"
	model "github.com/glkeru/loyalty/stamps/internal/models"
	phone "github.com/glkeru/loyalty/stamps/internal/phone"
	plans "github.com/glkeru/loyalty/stamps/internal/plans"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Состояние по умолчанию: пусто, бесплатный тариф
func DefaultSnapshot() model.Snapshot {
	return model.Snapshot{
		Programs:    []model.Program{},
		Customers:   []model.Customer{},
		Redemptions: []model.Redemption{},
		Plan:        model.PlanFreemium,
		Limits:      plans.LimitsFor(model.PlanFreemium),
	}
}

// StampsEngine owns the snapshot. Intents are applied one at a time, each
// admitted mutation is saved to the local store before the method returns
// and its remote effects go to the outbox.
type StampsEngine struct {
	mu        sync.Mutex
	state     model.Snapshot
	identity  string
	namespace string

	// программы, удаленные здесь; их награды больше не принимаются
	removed map[string]struct{}

	// последние лимиты из записи владельца
	overrides *model.LimitOverrides

	local  interf.LocalStore
	outbox *Outbox
	logger *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewStampsEngine(local interf.LocalStore, outbox *Outbox, logger *zap.Logger) *StampsEngine {
	return &StampsEngine{
		state:     DefaultSnapshot(),
		namespace: model.NamespaceKey(""),
		removed:   map[string]struct{}{},
		local:     local,
		outbox:    outbox,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Копия текущего состояния
func (e *StampsEngine) Snapshot() model.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

func (e *StampsEngine) Identity() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.identity
}

func (e *StampsEngine) Namespace() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.namespace
}

func (e *StampsEngine) persist(ctx context.Context) {
	err := e.local.Save(ctx, e.namespace, e.state.Clone())
	if err != nil {
		e.logger.Error("local save error",
			zap.String("service", "StampsEngine"),
			zap.String("namespace", e.namespace),
			zap.Error(err),
		)
	}
}

func (e *StampsEngine) enqueue(effects ...Effect) {
	if e.outbox == nil {
		return
	}
	e.outbox.Enqueue(effects...)
}

// Программы

func (e *StampsEngine) CreateProgram(ctx context.Context, in model.ProgramInput) (model.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	limit := e.state.Limits.MaxPrograms
	if len(e.state.Programs) >= limit {
		return model.Program{}, model.NewRejection(model.ReasonProgramsQuota,
			fmt.Errorf("programs limit %d: %w", limit, model.ErrQuotaExceeded),
			fmt.Sprintf("Limite de %d cartões atingido no seu plano.", limit))
	}
	p := model.Program{
		ID:          e.newID(),
		Name:        strings.TrimSpace(in.Name),
		TotalStamps: in.TotalStamps,
		Reward:      strings.TrimSpace(in.Reward),
		Pin:         in.Pin,
		Cover:       in.Cover,
	}
	if err := validate.Struct(p); err != nil {
		return model.Program{}, programRejection(err)
	}

	e.state.Programs = append(e.state.Programs, p)
	e.persist(ctx)
	e.enqueue(ProgramEffect(e.identity, p))
	return p, nil
}

// Частичное обновление, без проверки квоты
func (e *StampsEngine) UpdateProgram(ctx context.Context, id string, patch model.ProgramPatch) (model.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.programIndex(id)
	if i < 0 {
		return model.Program{}, notFound("program", id, "Programa não encontrado.")
	}
	p := e.state.Programs[i]
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.TotalStamps != nil {
		p.TotalStamps = *patch.TotalStamps
	}
	if patch.Reward != nil {
		p.Reward = strings.TrimSpace(*patch.Reward)
	}
	if patch.Pin != nil {
		p.Pin = *patch.Pin
	}
	if patch.Cover != nil {
		p.Cover = *patch.Cover
	}
	if err := validate.Struct(p); err != nil {
		return model.Program{}, programRejection(err)
	}

	e.state.Programs[i] = p
	e.persist(ctx)
	e.enqueue(ProgramEffect(e.identity, p))
	return p, nil
}

// Удаление программы вместе с ее клиентами и наградами
func (e *StampsEngine) RemoveProgram(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.programIndex(id) < 0 {
		return notFound("program", id, "Programa não encontrado.")
	}
	programs := make([]model.Program, 0, len(e.state.Programs))
	for _, p := range e.state.Programs {
		if p.ID != id {
			programs = append(programs, p)
		}
	}
	customers := make([]model.Customer, 0, len(e.state.Customers))
	for _, c := range e.state.Customers {
		if c.ProgramID != id {
			customers = append(customers, c)
		}
	}
	redemptions := make([]model.Redemption, 0, len(e.state.Redemptions))
	for _, r := range e.state.Redemptions {
		if r.ProgramID != id {
			redemptions = append(redemptions, r)
		}
	}
	e.state.Programs = programs
	e.state.Customers = customers
	e.state.Redemptions = redemptions
	e.removed[id] = struct{}{}

	e.persist(ctx)
	e.enqueue(DeleteProgramEffect(e.identity, id))
	return nil
}

// Клиенты

func (e *StampsEngine) CreateCustomer(ctx context.Context, in model.CustomerInput) (model.Customer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.programIndex(in.ProgramID) < 0 {
		return model.Customer{}, notFound("program", in.ProgramID, "Programa não encontrado.")
	}
	if !phone.IsValid(in.Phone) {
		return model.Customer{}, model.NewRejection(model.ReasonInvalidPhone,
			fmt.Errorf("phone %q: %w", in.Phone, model.ErrInvalidPhone),
			"Telefone inválido. Use DDD + 9 dígitos (ex.: 11999999999).")
	}
	normalized := phone.Normalize(in.Phone)

	count := 0
	for _, c := range e.state.Customers {
		if c.ProgramID != in.ProgramID {
			continue
		}
		count++
	}
	limit := e.state.Limits.MaxCustomersPerProgram
	if count >= limit {
		return model.Customer{}, model.NewRejection(model.ReasonCustomersQuota,
			fmt.Errorf("customers limit %d: %w", limit, model.ErrQuotaExceeded),
			fmt.Sprintf("Limite de %d clientes por cartão atingido.", limit))
	}
	for _, c := range e.state.Customers {
		if c.ProgramID == in.ProgramID && phone.Normalize(c.Phone) == normalized {
			return model.Customer{}, model.NewRejection(model.ReasonDuplicatePhone,
				fmt.Errorf("phone %s in program %s: %w", normalized, in.ProgramID, model.ErrDuplicatePhone),
				"Este telefone já está cadastrado neste cartão.")
		}
	}

	c := model.Customer{
		ID:        e.newID(),
		Name:      strings.TrimSpace(in.Name),
		Phone:     normalized,
		Stamps:    0,
		ProgramID: in.ProgramID,
	}
	e.state.Customers = append(e.state.Customers, c)
	e.persist(ctx)
	e.enqueue(CustomerEffect(e.identity, c))
	return c, nil
}

// Награды клиента остаются в истории
func (e *StampsEngine) RemoveCustomer(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.customerIndex(id) < 0 {
		return notFound("customer", id, "Cliente não encontrado.")
	}
	customers := make([]model.Customer, 0, len(e.state.Customers))
	for _, c := range e.state.Customers {
		if c.ID != id {
			customers = append(customers, c)
		}
	}
	e.state.Customers = customers

	e.persist(ctx)
	e.enqueue(DeleteCustomerEffect(e.identity, id))
	return nil
}

// +1 штамп, без ограничения сверху
func (e *StampsEngine) AddStamp(ctx context.Context, customerID string) (model.Customer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addStamp(ctx, customerID)
}

func (e *StampsEngine) addStamp(ctx context.Context, customerID string) (model.Customer, error) {
	i := e.customerIndex(customerID)
	if i < 0 {
		return model.Customer{}, notFound("customer", customerID, "Cliente não encontrado.")
	}
	e.state.Customers[i].Stamps++
	c := e.state.Customers[i]

	delta := 1
	ev := model.StampEvent{
		ID:         e.newID(),
		ProgramID:  c.ProgramID,
		CustomerID: c.ID,
		Type:       model.EventStamp,
		Delta:      &delta,
		CreatedAt:  e.now(),
	}
	e.persist(ctx)
	e.enqueue(CustomerEffect(e.identity, c), EventEffect(e.identity, ev))
	return c, nil
}

// Выдача награды: штампы в 0 и новая запись Redemption в начало списка
func (e *StampsEngine) ResetCustomer(ctx context.Context, customerID string) (model.Redemption, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resetCustomer(ctx, customerID)
}

func (e *StampsEngine) resetCustomer(ctx context.Context, customerID string) (model.Redemption, error) {
	i := e.customerIndex(customerID)
	if i < 0 {
		return model.Redemption{}, notFound("customer", customerID, "Cliente não encontrado.")
	}
	e.state.Customers[i].Stamps = 0
	c := e.state.Customers[i]

	id := e.newID()
	for e.redemptionIndex(id) >= 0 {
		id = e.newID()
	}
	r := model.Redemption{
		ID:         id,
		CustomerID: c.ID,
		ProgramID:  c.ProgramID,
		CreatedAt:  e.now(),
	}
	e.state.Redemptions = append([]model.Redemption{r}, e.state.Redemptions...)

	// событие redeem с тем же id, что и у Redemption
	ev := model.StampEvent{
		ID:         r.ID,
		ProgramID:  r.ProgramID,
		CustomerID: r.CustomerID,
		Type:       model.EventRedeem,
		CreatedAt:  r.CreatedAt,
	}
	if p := e.programIndex(c.ProgramID); p >= 0 {
		total := e.state.Programs[p].TotalStamps
		ev.Delta = &total
	}
	e.persist(ctx)
	e.enqueue(CustomerEffect(e.identity, c), EventEffect(e.identity, ev))
	return r, nil
}

// StampWithPin adds a stamp after checking the program PIN.
func (e *StampsEngine) StampWithPin(ctx context.Context, customerID string, pin string) (model.Customer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.customerPin(customerID, pin)
	if err != nil {
		return model.Customer{}, err
	}
	return e.addStamp(ctx, c.ID)
}

// RedeemWithPin checks the PIN and that the card is complete, then resets it.
func (e *StampsEngine) RedeemWithPin(ctx context.Context, customerID string, pin string) (model.Redemption, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.customerPin(customerID, pin)
	if err != nil {
		return model.Redemption{}, err
	}
	p := e.state.Programs[e.programIndex(c.ProgramID)]
	if c.Stamps < p.TotalStamps {
		return model.Redemption{}, model.NewRejection(model.ReasonIncomplete,
			fmt.Errorf("customer %s has %d of %d stamps", c.ID, c.Stamps, p.TotalStamps),
			"Cliente ainda não completou os selos.")
	}
	return e.resetCustomer(ctx, c.ID)
}

func (e *StampsEngine) customerPin(customerID string, pin string) (model.Customer, error) {
	i := e.customerIndex(customerID)
	if i < 0 {
		return model.Customer{}, notFound("customer", customerID, "Cliente não encontrado.")
	}
	c := e.state.Customers[i]
	if err := e.verifyPin(c.ProgramID, pin); err != nil {
		return model.Customer{}, err
	}
	return c, nil
}

func (e *StampsEngine) VerifyPin(programID string, pin string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.verifyPin(programID, pin)
}

func (e *StampsEngine) verifyPin(programID string, pin string) error {
	i := e.programIndex(programID)
	if i < 0 {
		return notFound("program", programID, "Programa não encontrado.")
	}
	if subtle.ConstantTimeCompare([]byte(e.state.Programs[i].Pin), []byte(pin)) != 1 {
		return model.ErrWrongPin
	}
	return nil
}

// Награды

// AppendRedemption folds in a redemption recorded elsewhere.
// A known id, or a program removed on this device, is a no-op and returns false.
// The program itself may arrive later with the next pull.
func (e *StampsEngine) AppendRedemption(ctx context.Context, r model.Redemption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.insertRedemption(r) {
		return false
	}
	e.persist(ctx)
	return true
}

// список отсортирован от новых к старым
func (e *StampsEngine) insertRedemption(r model.Redemption) bool {
	if r.ID == "" || e.redemptionIndex(r.ID) >= 0 {
		return false
	}
	if _, ok := e.removed[r.ProgramID]; ok {
		return false
	}
	list := e.state.Redemptions
	pos := len(list)
	for i, cur := range list {
		if cur.CreatedAt.Before(r.CreatedAt) {
			pos = i
			break
		}
	}
	out := make([]model.Redemption, 0, len(list)+1)
	out = append(out, list[:pos]...)
	out = append(out, r)
	out = append(out, list[pos:]...)
	e.state.Redemptions = out
	return true
}

// Тариф и профиль

// SetPlan replaces Plan and Limits together. Positive overrides win over the table.
func (e *StampsEngine) SetPlan(ctx context.Context, plan model.PlanID, overrides *model.LimitOverrides) model.Limits {
	e.mu.Lock()
	defer e.mu.Unlock()

	if overrides != nil {
		o := *overrides
		e.overrides = &o
	} else {
		e.overrides = nil
	}
	return e.applyPlan(ctx, plan)
}

// ChangePlan switches the plan and keeps the overrides last seen for the owner.
func (e *StampsEngine) ChangePlan(ctx context.Context, plan model.PlanID) model.Limits {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.applyPlan(ctx, plan)
}

func (e *StampsEngine) applyPlan(ctx context.Context, plan model.PlanID) model.Limits {
	p := plans.Parse(string(plan))
	e.state.Plan = p
	e.state.Limits = plans.Resolve(p, e.overrides)
	e.persist(ctx)
	return e.state.Limits
}

func (e *StampsEngine) UpdateProfile(ctx context.Context, patch model.ProfilePatch) model.Profile {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.state.Profile
	if patch.OwnerName != nil {
		p.OwnerName = *patch.OwnerName
	}
	if patch.StoreName != nil {
		p.StoreName = *patch.StoreName
	}
	if patch.Phone != nil {
		p.Phone = *patch.Phone
	}
	if patch.Email != nil {
		p.Email = *patch.Email
	}
	if patch.BusinessType != nil {
		p.BusinessType = *patch.BusinessType
	}
	e.state.Profile = p
	e.persist(ctx)
	e.enqueue(ProfileEffect(e.identity, p))
	return p
}

// Сброс к состоянию по умолчанию в текущем namespace
func (e *StampsEngine) ResetStore(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = DefaultSnapshot()
	e.overrides = nil
	e.persist(ctx)
}

// Загрузка состояния

// Hydrate replaces the fields present in p. Missing limits are derived from the plan.
func (e *StampsEngine) Hydrate(ctx context.Context, p model.PartialSnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.hydrate(p)
	e.persist(ctx)
}

func (e *StampsEngine) hydrate(p model.PartialSnapshot) {
	if p.Programs != nil {
		e.state.Programs = append([]model.Program{}, p.Programs...)
	}
	if p.Customers != nil {
		e.state.Customers = append([]model.Customer{}, p.Customers...)
	}
	if p.Redemptions != nil {
		e.state.Redemptions = append([]model.Redemption{}, p.Redemptions...)
	}
	if p.Plan != nil {
		e.state.Plan = plans.Parse(string(*p.Plan))
	}
	switch {
	case p.Limits != nil && p.Limits.MaxPrograms > 0 && p.Limits.MaxCustomersPerProgram > 0:
		e.state.Limits = *p.Limits
	case p.Plan != nil || p.Limits != nil:
		e.state.Limits = plans.LimitsFor(e.state.Plan)
	}
	if p.Profile != nil {
		e.state.Profile = *p.Profile
	}
}

// SwitchIdentity resets to defaults before any load for the new identity.
// The reset is not saved, so nothing leaks into either namespace.
func (e *StampsEngine) SwitchIdentity(identity string) (namespace string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = DefaultSnapshot()
	e.removed = map[string]struct{}{}
	e.overrides = nil
	e.identity = identity
	e.namespace = model.NamespaceKey(identity)
	return e.namespace
}

// Гидрация, только если namespace не сменился с начала загрузки
func (e *StampsEngine) HydrateNamespace(ctx context.Context, namespace string, p model.PartialSnapshot) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if namespace != e.namespace {
		e.logger.Debug("stale load discarded",
			zap.String("namespace", namespace),
			zap.String("current", e.namespace),
		)
		return false
	}
	e.hydrate(p)
	e.persist(ctx)
	return true
}

// MergePull folds a pull result into the snapshot. Programs and customers are
// upserted by id unless a local effect for them is still queued; redemptions
// are appended by id. Customers of unknown programs are skipped, redemptions
// only when their program was removed here.
func (e *StampsEngine) MergePull(ctx context.Context, namespace string, res model.PullResult) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if namespace != e.namespace {
		e.logger.Debug("stale pull discarded",
			zap.String("namespace", namespace),
			zap.String("current", e.namespace),
		)
		return false
	}

	for _, p := range res.Programs {
		if e.pending(p.ID) {
			continue
		}
		if i := e.programIndex(p.ID); i >= 0 {
			e.state.Programs[i] = p
		} else {
			e.state.Programs = append(e.state.Programs, p)
		}
	}
	for _, c := range res.Customers {
		if e.pending(c.ID) || e.programIndex(c.ProgramID) < 0 {
			continue
		}
		c.Phone = phone.Normalize(c.Phone)
		if i := e.customerIndex(c.ID); i >= 0 {
			e.state.Customers[i] = c
		} else {
			e.state.Customers = append(e.state.Customers, c)
		}
	}
	for _, r := range res.Redemptions {
		e.insertRedemption(r)
	}
	e.persist(ctx)
	return true
}

func (e *StampsEngine) pending(id string) bool {
	return e.outbox != nil && e.outbox.HasPending(id)
}

func (e *StampsEngine) programIndex(id string) int {
	for i, p := range e.state.Programs {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (e *StampsEngine) customerIndex(id string) int {
	for i, c := range e.state.Customers {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (e *StampsEngine) redemptionIndex(id string) int {
	for i, r := range e.state.Redemptions {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func notFound(what string, id string, message string) *model.Rejection {
	return model.NewRejection(model.ReasonNotFound, fmt.Errorf("%s %s: %w", what, id, model.ErrNotFound), message)
}

// Сообщение по первому невалидному полю
func programRejection(err error) *model.Rejection {
	msg := "Dados do programa inválidos."
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Field() {
		case "Name":
			msg = "Informe o nome do programa."
		case "TotalStamps":
			msg = "Quantidade de selos inválida. Use um número entre 1 e 30."
		case "Pin":
			msg = "PIN inválido. Use 4 a 6 dígitos."
		case "Reward":
			msg = "Descrição do benefício muito longa."
		}
	}
	return model.NewRejection(model.ReasonInvalidProgram, fmt.Errorf("%w: %v", model.ErrInvalidProgram, err), msg)
}
