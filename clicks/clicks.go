package clicks

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"go.uber.org/zap"
)

// Click represents a click event fed by swaybar back into stdin.
type Click struct {
	Name      string   `json:"name"`
	Instance  string   `json:"instance,omitempty"`
	Button    int      `json:"button"`
	X         int      `json:"x"`
	Y         int      `json:"y"`
	Modifiers []string `json:"modifiers"`
}

// i3bar button numbers.
const (
	ButtonLeft       = 1
	ButtonMiddle     = 2
	ButtonRight      = 3
	ButtonScrollUp   = 4
	ButtonScrollDown = 5
)

// Action is an edit a click asks a clock block to make.
type Action int

const (
	ToggleConvention Action = iota + 1
	CycleDelimiter
	AppendDelimiter
	DropDelimiter
	ResetFormat
)

var actionNames = map[Action]string{
	ToggleConvention: "toggle-convention",
	CycleDelimiter:   "cycle-delimiter",
	AppendDelimiter:  "append-delimiter",
	DropDelimiter:    "drop-delimiter",
	ResetFormat:      "reset-format",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "none"
}

// ActionFor maps a click to its action; ok is false for unbound buttons.
func ActionFor(c Click) (Action, bool) {
	switch c.Button {
	case ButtonLeft:
		return ToggleConvention, true
	case ButtonMiddle:
		return ResetFormat, true
	case ButtonRight:
		return CycleDelimiter, true
	case ButtonScrollUp:
		return AppendDelimiter, true
	case ButtonScrollDown:
		return DropDelimiter, true
	}
	return 0, false
}

// Read consumes the click event stream, emitting events onto out. The
// stream is an endless JSON array, one event per line; the opening bracket
// and the leading commas are skipped. Events are dropped if the channel is
// full to avoid blocking the main loop. Read returns when r is exhausted.
func Read(r io.Reader, out chan<- Click, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("clicks")
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := trimFrame(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var c Click
		if err := json.Unmarshal(line, &c); err != nil {
			log.Warn("click parse", zap.ByteString("line", line), zap.Error(err))
			continue
		}
		select {
		case out <- c:
		default:
			log.Debug("click dropped", zap.String("name", c.Name), zap.Int("button", c.Button))
		}
	}
	if err := sc.Err(); err != nil {
		log.Warn("click scanner", zap.Error(err))
	}
}

func trimFrame(line []byte) []byte {
	return bytes.TrimLeft(line, "[, \t")
}
