package attendance

import (
	"time"
)

type ActionType string

const (
	ActionEntrada ActionType = "entrada"
	ActionSalida  ActionType = "salida"
)

type Classification string

const (
	ClassificationPuntual Classification = "puntual"
	ClassificationRetardo Classification = "retardo"
	ClassificationFalta   Classification = "falta"
)

type RecordSource string

const (
	SourceRegistrar  RecordSource = "registrar"
	SourceReconciler RecordSource = "reconciler"
)

// Record is one append-only check-in or check-out.
type Record struct {
	ID             string
	EmployeeID     string
	WorkDate       time.Time // local calendar day the record belongs to
	Type           ActionType
	Classification Classification
	Timestamp      time.Time
	DayRecordIndex int // 0-based position within the work date; unique per employee and day
	GroupIndex     int // shift group the record was evaluated against
	Latitude       *float64
	Longitude      *float64
	DepartmentID   *string
	Source         RecordSource
	CreatedAt      time.Time
}

// DayState is rebuilt from the store on every evaluation.
type DayState struct {
	LastRecord         *Record
	RecordsTodayCount  int
	LastCheckOutMinute *int
}

// NewDayState derives the day state from today's records ordered most-recent-first.
// Clock values are read in loc.
func NewDayState(records []Record, loc *time.Location) DayState {
	state := DayState{RecordsTodayCount: len(records)}
	if len(records) == 0 {
		return state
	}
	last := records[0]
	state.LastRecord = &last
	if last.Type == ActionSalida {
		ts := last.Timestamp.In(loc)
		m := ts.Hour()*60 + ts.Minute()
		state.LastCheckOutMinute = &m
	}
	return state
}

// CompletedGroups is the number of shift groups closed by an entrada/salida pair.
func (s DayState) CompletedGroups() int {
	return s.RecordsTodayCount / 2
}

// NextGroupIndex is the first group an entrada may still target. Groups skipped
// without a record count as consumed once a later group has been closed.
func (s DayState) NextGroupIndex() int {
	next := s.CompletedGroups()
	if s.LastRecord != nil && s.LastRecord.Type == ActionSalida {
		next = max(next, s.LastRecord.GroupIndex+1)
	}
	return next
}

// OpenGroupIndex is the group the pending entrada was classified against,
// clamped to a schedule of n groups.
func (s DayState) OpenGroupIndex(n int) int {
	if s.LastRecord == nil {
		return 0
	}
	return OpenGroupIndex(*s.LastRecord, n)
}

// OpenGroupIndex clamps the group stored on an entrada to a schedule of n groups.
// The schedule can change between the check-in and its evaluation.
func OpenGroupIndex(entry Record, n int) int {
	return min(max(entry.GroupIndex, 0), n-1)
}

type EligibilityState string

const (
	StateFueraHorario       EligibilityState = "fuera_horario"
	StatePuntual            EligibilityState = "puntual"
	StateRetardo            EligibilityState = "retardo"
	StateFalta              EligibilityState = "falta"
	StateTiempoInsuficiente EligibilityState = "tiempo_insuficiente"
	StateCompletado         EligibilityState = "completado"
)

// Reason explains an eligibility outcome in a machine-readable way.
type Reason string

const (
	ReasonAllowed           Reason = "registro_permitido"
	ReasonNoShifts          Reason = "no_turnos_configurados"
	ReasonFutureShift       Reason = "turno_futuro"
	ReasonShiftsPassed      Reason = "turnos_pasados"
	ReasonEntryWindowClosed Reason = "ventana_entrada_cerrada"
	ReasonExitWindowNotOpen Reason = "ventana_salida_no_abierta"
	ReasonExitWindowClosed  Reason = "ventana_salida_cerrada"
	ReasonInsufficientTime  Reason = "tiempo_insuficiente"
	ReasonDayComplete       Reason = "jornada_completa"
)

// EligibilityResult is recomputed on demand and never stored.
type EligibilityResult struct {
	CanRegister       bool             `json:"canRegister"`
	NextActionType    ActionType       `json:"nextActionType"`
	State             EligibilityState `json:"state"`
	Classification    *Classification  `json:"classification,omitempty"`
	DayComplete       bool             `json:"dayComplete"`
	WaitMessage       string           `json:"waitMessage,omitempty"`
	Reason            Reason           `json:"reason"`
	GroupIndex        int              `json:"groupIndex"`
	HasFutureShift    bool             `json:"hayTurnoFuturo"`
	MinutesUntilStart int              `json:"minutosParaInicio,omitempty"`
	MinutesRemaining  int              `json:"minutosRestantes,omitempty"`
}
