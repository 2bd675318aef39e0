package inventory

import (
	"context"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/prestamos-api/internal/domain"
	"github.com/jhoicas/prestamos-api/internal/domain/entity"
	domaininv "github.com/jhoicas/prestamos-api/internal/domain/inventory"
	"github.com/jhoicas/prestamos-api/internal/domain/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	verifyPageSize  = 500
)

// MovementInput entrada para registrar un movimiento en el libro de stock.
type MovementInput struct {
	ItemID    string
	Type      string // IN | OUT
	Amount    int64
	RequestID *string
	ActorID   string
	Notes     string
}

// MovementPage página de historial (más reciente primero). NextPageToken vacío = fin.
type MovementPage struct {
	Items         []*entity.StockMovement
	NextPageToken string
}

// LedgerCheck resultado de reconstruir la cantidad de un ítem desde su historial.
type LedgerCheck struct {
	ItemID           string
	StoredQuantity   int64
	ReplayedQuantity int64
	TotalIn          int64
	TotalOut         int64
	Movements        int
	Consistent       bool
	Problem          string
}

// StockLedger es el único escritor de StockMovement. Cada movimiento cambia la cantidad
// de exactamente un ítem y agrega exactamente una fila, en la misma transacción.
type StockLedger struct {
	txRunner TxRunner
	itemRepo repository.ItemRepository
	movRepo  repository.StockMovementRepository
	now      func() time.Time
}

// NewStockLedger construye el libro. itemRepo y movRepo son los adaptadores de solo lectura (fuera de tx).
func NewStockLedger(txRunner TxRunner, itemRepo repository.ItemRepository, movRepo repository.StockMovementRepository) *StockLedger {
	return &StockLedger{txRunner: txRunner, itemRepo: itemRepo, movRepo: movRepo, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (l *StockLedger) WithClock(now func() time.Time) *StockLedger {
	l.now = now
	return l
}

// RecordMovement registra un movimiento en su propia transacción.
func (l *StockLedger) RecordMovement(ctx context.Context, input MovementInput) (*entity.StockMovement, error) {
	if err := validateMovement(input); err != nil {
		return nil, err
	}
	var mov *entity.StockMovement
	err := l.txRunner.Run(ctx, func(itemRepo repository.ItemRepository, movRepo repository.StockMovementRepository) error {
		var err error
		mov, err = l.RecordMovementInTx(ctx, itemRepo, movRepo, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// RecordMovementInTx registra el movimiento usando los repositorios del caller (misma transacción).
// Reserve/Release bloquean la fila del ítem, por lo que la secuencia calculada aquí es única.
// Si retorna error el caller debe hacer rollback.
func (l *StockLedger) RecordMovementInTx(
	ctx context.Context,
	itemRepo repository.ItemRepository,
	movRepo repository.StockMovementRepository,
	input MovementInput,
) (*entity.StockMovement, error) {
	if err := validateMovement(input); err != nil {
		return nil, err
	}

	var before, after int64
	var err error
	switch input.Type {
	case entity.MovementTypeOUT:
		before, after, err = itemRepo.Reserve(ctx, input.ItemID, input.Amount)
	case entity.MovementTypeIN:
		before, after, err = itemRepo.Release(ctx, input.ItemID, input.Amount)
	}
	if err != nil {
		return nil, err
	}

	last, err := movRepo.LastSequence(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}
	mov := &entity.StockMovement{
		ID:             uuid.New().String(),
		ItemID:         input.ItemID,
		Sequence:       last + 1,
		Type:           input.Type,
		Amount:         input.Amount,
		QuantityBefore: before,
		QuantityAfter:  after,
		RequestID:      input.RequestID,
		ActorID:        input.ActorID,
		Notes:          input.Notes,
		CreatedAt:      l.now(),
	}
	if !mov.Consistent() {
		return nil, errors.New("libro de stock: movimiento inconsistente")
	}
	if err := movRepo.Create(ctx, mov); err != nil {
		return nil, err
	}
	return mov, nil
}

// Adjust registra un ajuste manual (sin solicitud causante). Solo aprobadores.
func (l *StockLedger) Adjust(ctx context.Context, actor entity.Principal, itemID, movementType string, amount int64, notes string) (*entity.StockMovement, error) {
	if !actor.Can(entity.CapabilityApprover) {
		return nil, domain.ErrUnauthorized
	}
	if strings.TrimSpace(notes) == "" {
		return nil, domain.Invalid("los ajustes manuales requieren una nota")
	}
	return l.RecordMovement(ctx, MovementInput{
		ItemID:  itemID,
		Type:    strings.ToUpper(movementType),
		Amount:  amount,
		ActorID: actor.UserID,
		Notes:   notes,
	})
}

// History devuelve una página del historial del ítem, del más reciente al más antiguo.
// pageToken vacío empieza por el último movimiento.
func (l *StockLedger) History(ctx context.Context, itemID, pageToken string, limit int) (*MovementPage, error) {
	if itemID == "" {
		return nil, domain.Invalid("item_id requerido")
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	beforeSeq, err := DecodePageToken(pageToken)
	if err != nil {
		return nil, err
	}
	item, err := l.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, &domain.NotFoundError{Kind: "item", ID: itemID}
	}

	list, err := l.movRepo.ListByItem(ctx, itemID, beforeSeq, limit+1)
	if err != nil {
		return nil, err
	}
	page := &MovementPage{Items: list}
	if len(list) > limit {
		page.Items = list[:limit]
		page.NextPageToken = EncodePageToken(page.Items[limit-1].Sequence)
	}
	return page, nil
}

// Verify reconstruye la cantidad del ítem desde cero recorriendo todo su historial
// y la compara con la cantidad almacenada.
func (l *StockLedger) Verify(ctx context.Context, itemID string) (*LedgerCheck, error) {
	item, err := l.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, &domain.NotFoundError{Kind: "item", ID: itemID}
	}

	// Páginas del más reciente al más antiguo; se invierten para el replay.
	var all []*entity.StockMovement
	var cursor int64
	for {
		page, err := l.movRepo.ListByItem(ctx, itemID, cursor, verifyPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < verifyPageSize {
			break
		}
		cursor = page[len(page)-1].Sequence
	}
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}

	check := &LedgerCheck{ItemID: itemID, StoredQuantity: item.Quantity, Movements: len(all)}
	qty, totalIn, totalOut, err := domaininv.Replay(all)
	if err != nil {
		check.Problem = err.Error()
		return check, nil
	}
	check.ReplayedQuantity = qty
	check.TotalIn = totalIn
	check.TotalOut = totalOut
	check.Consistent = qty == item.Quantity && totalIn-totalOut == item.Quantity
	if !check.Consistent {
		check.Problem = "la cantidad almacenada no coincide con el libro"
	}
	return check, nil
}

func validateMovement(in MovementInput) error {
	if in.ItemID == "" {
		return domain.Invalid("item_id requerido")
	}
	if in.Type != entity.MovementTypeIN && in.Type != entity.MovementTypeOUT {
		return domain.Invalid("tipo de movimiento %q inválido", in.Type)
	}
	if in.Amount <= 0 {
		return domain.Invalid("la cantidad debe ser mayor que cero")
	}
	return nil
}

// EncodePageToken codifica la secuencia del último movimiento entregado.
func EncodePageToken(seq int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte("seq:" + strconv.FormatInt(seq, 10)))
}

// DecodePageToken devuelve la secuencia a partir de la cual continuar (0 = desde el inicio).
func DecodePageToken(token string) (int64, error) {
	if token == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, domain.Invalid("page_token inválido")
	}
	s, ok := strings.CutPrefix(string(raw), "seq:")
	if !ok {
		return 0, domain.Invalid("page_token inválido")
	}
	seq, err := strconv.ParseInt(s, 10, 64)
	if err != nil || seq <= 0 {
		return 0, domain.Invalid("page_token inválido")
	}
	return seq, nil
}
