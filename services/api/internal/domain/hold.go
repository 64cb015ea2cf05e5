package domain

// ItemStatus is the persisted form of a stock item's state.
type ItemStatus string

const (
	ItemStatusAvailable ItemStatus = "available"
	ItemStatusHeld      ItemStatus = "held"
	ItemStatusSold      ItemStatus = "sold"
)

// ItemState is one of Available, Held or Sold. The set is closed: only
// types in this package implement it.
type ItemState interface {
	Status() ItemStatus
	// Holder is the reservation id while held, the order id once sold and
	// empty while available.
	Holder() string
	itemState()
}

type Available struct{}

func (Available) Status() ItemStatus { return ItemStatusAvailable }
func (Available) Holder() string { return "" }
func (Available) itemState() {}

// Held ties an item to a pending reservation.
type Held struct {
	ReservationID string
}

func (Held) Status() ItemStatus { return ItemStatusHeld }
func (h Held) Holder() string { return h.ReservationID }
func (Held) itemState() {}

// Sold is terminal for the engine.
type Sold struct {
	OrderID string
}

func (Sold) Status() ItemStatus { return ItemStatusSold }
func (s Sold) Holder() string { return s.OrderID }
func (Sold) itemState() {}

// ParseItemState rebuilds a state from its stored status and holder columns.
func ParseItemState(status, holder string) (ItemState, error) {
	switch ItemStatus(status) {
	case ItemStatusAvailable, "":
		return Available{}, nil
	case ItemStatusHeld:
		if holder == "" {
			return nil, ErrUnknownItemStatus
		}
		return Held{ReservationID: holder}, nil
	case ItemStatusSold:
		return Sold{OrderID: holder}, nil
	default:
		return nil, ErrUnknownItemStatus
	}
}

// StockItem is a single sellable credential.
type StockItem struct {
	ID         string
	ProductID  string
	Credential string
	State      ItemState
}

// IsHeldBy reports whether the item is held by the given reservation.
func (i StockItem) IsHeldBy(reservationID string) bool {
	h, ok := i.State.(Held)
	return ok && h.ReservationID == reservationID
}
