package sequence

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/docrecon/internal/core/normalize"
	"github.com/joseph-ayodele/docrecon/internal/entity"
)

type slot struct {
	name  string
	valid normalize.SlotValidator
}

type block struct {
	kind  string
	slots []slot
}

func compileBlock(bs BlockSpec) (*block, error) {
	if len(bs.Slots) == 0 {
		return nil, fmt.Errorf("no slots")
	}
	b := &block{kind: bs.Kind}
	for _, ss := range bs.Slots {
		s := slot{name: ss.Name, valid: normalize.Any}
		switch {
		case ss.Validator != "" && ss.Pattern != "":
			return nil, fmt.Errorf("slot %s: validator and pattern are exclusive", ss.Name)
		case ss.Validator != "":
			v, ok := normalize.LookupSlotValidator(ss.Validator)
			if !ok {
				return nil, fmt.Errorf("slot %s: unknown validator %q", ss.Name, ss.Validator)
			}
			s.valid = v
		case ss.Pattern != "":
			re, err := regexp.Compile(ss.Pattern)
			if err != nil {
				return nil, fmt.Errorf("slot %s: %w", ss.Name, err)
			}
			s.valid = re.MatchString
		}
		b.slots = append(b.slots, s)
	}
	return b, nil
}

func (b *block) width() int { return len(b.slots) }

type blockState int

const (
	seekingAnchor blockState = iota
	inWindow
	blockValidated
	resync
)

// scan walks the buffer with a small state machine. A validated block
// advances the cursor by the block width; any slot failure or a block cut
// short by the end of the buffer advances it by one line.
func (b *block) scan(buf entity.LineBuffer, logger *slog.Logger) []entity.LineItemRow {
	var (
		rows    []entity.LineItemRow
		pending entity.LineItemRow
		state   = seekingAnchor
		i       = 0
	)
	for i < buf.Len() {
		switch state {
		case seekingAnchor:
			line, _ := buf.At(i)
			if b.slots[0].valid(strings.TrimSpace(line)) {
				state = inWindow
			} else {
				i++
			}

		case inWindow:
			lines := buf.Window(i, b.width())
			if len(lines) < b.width() {
				logger.Debug("block truncated", "kind", b.kind, "line", i)
				state = resync
				break
			}
			row, failed := b.validate(lines)
			if failed != "" {
				logger.Debug("block slot rejected", "kind", b.kind, "line", i, "slot", failed)
				state = resync
				break
			}
			pending = row
			state = blockValidated

		case blockValidated:
			rows = append(rows, pending)
			i += b.width()
			state = seekingAnchor

		case resync:
			i++
			state = seekingAnchor
		}
	}
	return rows
}

// validate returns the row, or the name of the first slot that failed.
func (b *block) validate(lines []string) (entity.LineItemRow, string) {
	row := entity.LineItemRow{Kind: b.kind, Values: make([]entity.Value, 0, len(b.slots))}
	for j, s := range b.slots {
		v := strings.TrimSpace(lines[j])
		if !s.valid(v) {
			return entity.LineItemRow{}, s.name
		}
		row.Values = append(row.Values, entity.Value{Name: s.name, Value: v})
	}
	return row, ""
}
