package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/julienschmidt/httprouter"

	"github.com/xenking/turfshop/internal/domain/submission"
	"github.com/xenking/turfshop/internal/jsonx"
)

func (h *Handler) contact(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var c submission.Contact
	fields := map[string]*string{
		"fullName":    &c.FullName,
		"email":       &c.Email,
		"phone":       &c.Phone,
		"projectType": &c.ProjectType,
		"areaSize":    &c.AreaSize,
		"location":    &c.Location,
		"message":     &c.Message,
	}
	if err := readBody(w, r, func(d *jx.Decoder, key string) error {
		dst, ok := fields[key]
		if !ok {
			return d.Skip()
		}
		v, err := jsonx.ReadText(d)
		*dst = v
		return err
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := c.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	receipt, err := h.gateway.Send(r.Context(), c)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, func(e *jx.Encoder) { encodeReceipt(e, receipt) })
}
