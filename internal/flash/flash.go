// Package flash carries state across exactly one redirect. Two mechanisms
// share the session hash: named messages with a severity (shown once by the
// rendering layer, then gone) and the redirect carry, which moves arbitrary
// form state (submitted inputs, per-field errors) to the GET request that
// follows a failed POST. Both are consumed by their first read.
package flash

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-portal/internal/session"
)

// Severity selects the presentation style of a message. The set is closed;
// the rendering layer maps each value onto an alert class.
type Severity string

const (
	Error   Severity = "error"
	Warning Severity = "warning"
	Success Severity = "success"
	Info    Severity = "info"
)

// Message is one named flash entry as handed to the rendering layer.
type Message struct {
	Name string   `json:"name"`
	Text string   `json:"message"`
	Type Severity `json:"type"`
}

// entry is the stored form; Seq preserves insertion order across the
// unordered Redis hash.
type entry struct {
	Message string   `json:"message"`
	Type    Severity `json:"type"`
	Seq     int64    `json:"seq"`
}

const (
	msgPrefix   = "flash:"
	carryPrefix = "carry:"
	seqField    = "flash_seq"
)

// Put stores a message under name, replacing any existing entry with the
// same name.
func Put(ctx context.Context, sess *session.Session, name, text string, sev Severity) error {
	seq, err := nextSeq(ctx, sess)
	if err != nil {
		return err
	}
	b, err := json.Marshal(entry{Message: text, Type: sev, Seq: seq})
	if err != nil {
		return err
	}
	return sess.Set(ctx, msgPrefix+name, string(b))
}

// Pop reads and deletes the message stored under name. A miss is not an
// error; the bool reports whether a message was present.
func Pop(ctx context.Context, sess *session.Session, name string) (Message, bool, error) {
	vals, err := sess.Take(ctx, msgPrefix+name)
	if err != nil {
		return Message{}, false, err
	}
	if vals[0] == "" {
		return Message{}, false, nil
	}
	var e entry
	if err := json.Unmarshal([]byte(vals[0]), &e); err != nil {
		return Message{}, false, err
	}
	return Message{Name: name, Text: e.Message, Type: e.Type}, true, nil
}

// PopAll drains every pending message in insertion order and resets the
// sequence counter.
func PopAll(ctx context.Context, sess *session.Session) ([]Message, error) {
	fields, err := sess.Fields(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, f := range fields {
		if strings.HasPrefix(f, msgPrefix) {
			names = append(names, f)
		}
	}
	if len(names) == 0 {
		return nil, nil
	}
	vals, err := sess.Take(ctx, append(names, seqField)...)
	if err != nil {
		return nil, err
	}
	type ordered struct {
		msg Message
		seq int64
	}
	all := make([]ordered, 0, len(names))
	for i, name := range names {
		if vals[i] == "" {
			continue
		}
		var e entry
		if err := json.Unmarshal([]byte(vals[i]), &e); err != nil {
			return nil, err
		}
		all = append(all, ordered{
			msg: Message{Name: strings.TrimPrefix(name, msgPrefix), Text: e.Message, Type: e.Type},
			seq: e.Seq,
		})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })
	out := make([]Message, len(all))
	for i, o := range all {
		out[i] = o.msg
	}
	return out, nil
}

// RedirectWith writes each item into the session carry area and then issues
// the redirect. The next request recovers the items, once, via TakeCarry.
func RedirectWith(c echo.Context, sess *session.Session, url string, items map[string]any) error {
	ctx := c.Request().Context()
	for key, val := range items {
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		if err := sess.Set(ctx, carryPrefix+key, string(b)); err != nil {
			return err
		}
	}
	return c.Redirect(http.StatusSeeOther, url)
}

// RedirectWithMessage flashes a message under a unique name and redirects.
func RedirectWithMessage(c echo.Context, sess *session.Session, url, text string, sev Severity) error {
	if err := Put(c.Request().Context(), sess, "flash_"+uuid.NewString(), text, sev); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, url)
}

// TakeCarry reads and deletes the carry values for the given keys, in order.
// Absent keys decode to empty maps, so a second TakeCarry after a
// RedirectWith yields empty values for every key.
func TakeCarry(ctx context.Context, sess *session.Session, keys ...string) ([]map[string]string, error) {
	fields := make([]string, len(keys))
	for i, k := range keys {
		fields[i] = carryPrefix + k
	}
	vals, err := sess.Take(ctx, fields...)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]string, len(keys))
	for i, v := range vals {
		out[i] = map[string]string{}
		if v == "" {
			continue
		}
		if err := json.Unmarshal([]byte(v), &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// nextSeq advances the per-session insertion counter. Concurrent requests on
// one session are not serialized (a lost increment only affects display
// order of simultaneously flashed messages).
func nextSeq(ctx context.Context, sess *session.Session) (int64, error) {
	cur, err := sess.Get(ctx, seqField)
	if err != nil {
		return 0, err
	}
	n, _ := strconv.ParseInt(cur, 10, 64)
	n++
	return n, sess.Set(ctx, seqField, strconv.FormatInt(n, 10))
}
