package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/xenking/turfshop/internal/domain/auth"
	"github.com/xenking/turfshop/internal/domain/draft"
	"github.com/xenking/turfshop/internal/domain/submission"
	"github.com/xenking/turfshop/internal/jsonx"
)

// brokerHandle is an httprouter.Handle that runs for an authenticated
// broker.
type brokerHandle func(w http.ResponseWriter, r *http.Request, ps httprouter.Params, b *auth.Broker)

// broker authenticates the api_key header with the drafts scope before
// calling next.
func (h *Handler) broker(next brokerHandle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		b, err := h.auth.Authenticate(r.Context(), r.Header.Get(APIKeyHeader), auth.ScopeDrafts)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		ctx := zctx.With(auth.WithBroker(r.Context(), b), zap.String("broker_id", b.ID))
		next(w, r.WithContext(ctx), ps, b)
	}
}

func (h *Handler) draftList(ps httprouter.Params, b *auth.Broker) (*draft.List, error) {
	kind, ok := draft.ParseKind(ps.ByName("kind"))
	if !ok {
		return nil, errUnknownKind
	}
	l, ok := h.drafts.Workspace(b.ID).List(kind)
	if !ok {
		return nil, errUnknownKind
	}
	return l, nil
}

func draftItemID(ps httprouter.Params) (int, error) {
	id, err := strconv.Atoi(ps.ByName("itemID"))
	if err != nil {
		return 0, badRequest("invalid item id", err)
	}
	return id, nil
}

// draftCounts returns the badge numbers: items per kind and their sum.
func (h *Handler) draftCounts(w http.ResponseWriter, _ *http.Request, _ httprouter.Params, b *auth.Broker) {
	ws := h.drafts.Workspace(b.ID)
	counts := ws.Counts()
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		for _, k := range []draft.Kind{draft.KindOrder, draft.KindPreorder, draft.KindInquiry} {
			e.FieldStart(string(k))
			e.Int(counts[k])
		}
		e.FieldStart("total")
		e.Int(ws.ItemCount())
		e.ObjEnd()
	})
}

func (h *Handler) getDraft(w http.ResponseWriter, r *http.Request, ps httprouter.Params, b *auth.Broker) {
	l, err := h.draftList(ps, b)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, func(e *jx.Encoder) { h.encodeDraft(e, l) })
}

func (h *Handler) addDraftItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params, b *auth.Broker) {
	l, err := h.draftList(ps, b)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	l.Add()
	respond(w, http.StatusCreated, func(e *jx.Encoder) { h.encodeDraft(e, l) })
}

// updateDraftItem sets one field: {"field": "quantity", "value": "2.5"}.
// Numeric values may be sent as numbers or strings.
func (h *Handler) updateDraftItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params, b *auth.Broker) {
	l, err := h.draftList(ps, b)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := draftItemID(ps)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var field, value string
	if err := readBody(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "field":
			field, err = jsonx.ReadOptStr(d)
		case "value":
			value, err = jsonx.ReadText(d)
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	if field == "" {
		h.fail(w, r, badRequest("field is required", nil))
		return
	}

	_, found, err := l.Update(id, draft.Field(field), value)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !found {
		h.fail(w, r, errDraftItemNotFound)
		return
	}
	respond(w, http.StatusOK, func(e *jx.Encoder) { h.encodeDraft(e, l) })
}

// removeDraftItem is idempotent: removing an absent item returns the list
// unchanged.
func (h *Handler) removeDraftItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params, b *auth.Broker) {
	l, err := h.draftList(ps, b)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := draftItemID(ps)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	l.Remove(id)
	respond(w, http.StatusOK, func(e *jx.Encoder) { h.encodeDraft(e, l) })
}

func (h *Handler) submitDraft(w http.ResponseWriter, r *http.Request, ps httprouter.Params, b *auth.Broker) {
	l, err := h.draftList(ps, b)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	receipt, err := l.Submit(r.Context(), submission.Broker{ID: b.ID, Name: b.Name, Email: b.Email}, h.gateway)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	zctx.From(r.Context()).Info("Draft submitted",
		zap.String("kind", string(l.Kind())),
		zap.String("receipt_id", receipt.ID),
	)
	respond(w, http.StatusOK, func(e *jx.Encoder) { encodeReceipt(e, receipt) })
}
