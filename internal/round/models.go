package round

import (
	"encoding/json"
	"time"
)

type Color string

const (
	ColorRed   Color = "RED"
	ColorBlue  Color = "BLUE"
	ColorGreen Color = "GREEN"
)

func (c Color) Valid() bool {
	return c == ColorRed || c == ColorBlue || c == ColorGreen
}

type Parity string

const (
	ParityNone Parity = ""
	ParityOdd  Parity = "ODD"
	ParityEven Parity = "EVEN"
)

// WildcardNumber is the number carried by a GREEN outcome.
const WildcardNumber = 0

type Phase string

const (
	PhaseBetting Phase = "BETTING"
	PhaseRolling Phase = "ROLLING"
)

// Outcome is the immutable result of one round. A GREEN outcome has
// WildcardNumber and ParityNone.
type Outcome struct {
	Color      Color  `json:"color"`
	Number     int    `json:"number"`
	Parity     Parity `json:"parity"`
	Overridden bool   `json:"overridden"`
}

// NewOutcome derives number and parity for color from the drawn number.
func NewOutcome(color Color, number int, overridden bool) Outcome {
	if color == ColorGreen {
		return Outcome{Color: color, Number: WildcardNumber, Parity: ParityNone, Overridden: overridden}
	}
	parity := ParityOdd
	if number%2 == 0 {
		parity = ParityEven
	}
	return Outcome{Color: color, Number: number, Parity: parity, Overridden: overridden}
}

func (o Outcome) IsWildcard() bool {
	return o.Color == ColorGreen
}

// MarshalJSON writes null number and parity for the wildcard.
func (o Outcome) MarshalJSON() ([]byte, error) {
	type wire struct {
		Color      Color   `json:"color"`
		Number     *int    `json:"number"`
		Parity     *Parity `json:"parity"`
		Overridden bool    `json:"overridden"`
	}
	w := wire{Color: o.Color, Overridden: o.Overridden}
	if !o.IsWildcard() {
		n, p := o.Number, o.Parity
		w.Number, w.Parity = &n, &p
	}
	return json.Marshal(w)
}

// State is a read-only view of the round clock.
type State struct {
	Phase            Phase    `json:"phase"`
	SecondsRemaining int      `json:"secondsRemaining"`
	CurrentOutcome   *Outcome `json:"currentOutcome"`
}

// GameSettings is the persisted operator settings row.
type GameSettings struct {
	SettingID         string    `gorm:"column:setting_id;primaryKey;type:varchar(50)"`
	NextColorOverride *string   `gorm:"column:next_color_override;type:varchar(10)"`
	UpdatedAt         time.Time `gorm:"column:updated_at;not null;default:now()"`
}

const GlobalSettingsID = "GLOBAL_SETTINGS"
