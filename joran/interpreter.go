package joran

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/KOMKZ/go-yogan-logconf/errcode"
)

// Interpreter walks an XML document and dispatches its elements to the actions of a
// RuleStore. One Interpreter may play many documents, one at a time per context.
type Interpreter struct {
	rules *RuleStore
}

// NewInterpreter creates an Interpreter over rules
func NewInterpreter(rules *RuleStore) *Interpreter {
	return &Interpreter{rules: rules}
}

type frame struct {
	name   string
	action Action // nil while skipping
	depth  int
	body   strings.Builder
}

// Play interprets the document read from r. Each element's stack depth is recorded
// before Begin; the stack is unwound to it when the element is skipped or the pass
// aborts, and an End that leaves a different depth fails with
// errcode.ErrStackUnbalanced.
func (in *Interpreter) Play(ic *InterpretationContext, r io.Reader) (err error) {
	base := ic.Depth()
	defer func() {
		ic.path = ic.path[:0]
		if err != nil {
			ic.unwind(base)
		}
	}()

	report := ic.Reporter("Interpreter")
	dec := xml.NewDecoder(r)
	var frames []*frame
	seenRoot := false

	for {
		tok, tokErr := dec.Token()
		if tokErr == io.EOF {
			break
		}
		if tokErr != nil {
			return errcode.ErrMalformedConfig.Wrapf(tokErr, "malformed configuration at %s", ic.Location())
		}

		switch t := tok.(type) {
		case xml.StartElement:
			seenRoot = true
			ic.path = append(ic.path, t.Name.Local)
			f := &frame{name: t.Name.Local, depth: ic.Depth()}
			frames = append(frames, f)

			if len(frames) > 1 && frames[len(frames)-2].action == nil {
				continue
			}
			action := in.rules.Lookup(ic.path)
			if action == nil {
				report.Warn(fmt.Sprintf("no applicable action for [%s], current path is %s", t.Name.Local, ic.Location()))
				continue
			}

			attrs := make(Attributes, len(t.Attr))
			for _, a := range t.Attr {
				attrs[a.Name.Local] = ic.Subst(a.Value)
			}
			if beginErr := action.Begin(ic, t.Name.Local, attrs); beginErr != nil {
				ic.unwind(f.depth)
				if !errors.Is(beginErr, errcode.ErrElementSkipped) {
					return beginErr
				}
				report.Error(fmt.Sprintf("skipping element %s", ic.Location()), beginErr)
				continue
			}
			f.action = action

		case xml.CharData:
			if len(frames) == 0 {
				continue
			}
			if f := frames[len(frames)-1]; f.action != nil {
				if _, ok := f.action.(BodyAction); ok {
					f.body.Write(t)
				}
			}

		case xml.EndElement:
			f := frames[len(frames)-1]
			frames = frames[:len(frames)-1]
			if f.action != nil {
				if endErr := in.end(ic, f); endErr != nil {
					return endErr
				}
			}
			ic.path = ic.path[:len(ic.path)-1]
		}
	}

	if !seenRoot {
		return errcode.ErrMalformedConfig.WithMsg("empty configuration document")
	}
	if ic.Depth() != base {
		return errcode.ErrStackUnbalanced.WithMsgf("interpretation stack left at depth %d, expected %d", ic.Depth(), base)
	}
	return nil
}

func (in *Interpreter) end(ic *InterpretationContext, f *frame) error {
	if ba, ok := f.action.(BodyAction); ok {
		if body := strings.TrimSpace(f.body.String()); body != "" {
			if err := ba.Body(ic, f.name, ic.Subst(body)); err != nil {
				return err
			}
		}
	}
	if err := f.action.End(ic, f.name); err != nil {
		return err
	}
	if ic.Depth() != f.depth {
		return errcode.ErrStackUnbalanced.WithMsgf("element %s left the interpretation stack at depth %d, expected %d",
			ic.Location(), ic.Depth(), f.depth)
	}
	return nil
}
