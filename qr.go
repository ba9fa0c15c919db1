package main

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// joinQR serves a PNG QR code pointing at the join URL for a game, so
// a game master can put the code on a screen and let players scan in.
func (a *apiServer) joinQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	startTime := time.Now()

	code := ps.ByName("code")

	g, err := a.svc.Store().GameByCode(r.Context(), code)
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	base := a.cfg.baseURL
	if base == "" {
		base = requestScheme(a.cfg, r) + "://" + r.Host
	}
	base = strings.TrimSuffix(base, "/")

	url := base + a.cfg.prefix + "/join/" + g.Code

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "image/png")
	securityHeaders(a.cfg, w)

	written, err := w.Write(png)
	if err != nil {
		return
	}

	logf(a.cfg, "SERVE: QR code for %s (%s) to %s in %s",
		g.Code,
		humanReadableSize(int64(written)),
		realIP(r),
		time.Since(startTime).Round(time.Microsecond),
	)
}

// joinLanding is the page a scanned QR code resolves to when no
// frontend is configured via --base-url. It confirms the game exists
// and points the player at the join endpoint.
func (a *apiServer) joinLanding(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	g, err := a.svc.Store().GameByCode(r.Context(), ps.ByName("code"))
	if err != nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(a.cfg, w)
		w.WriteHeader(statusForError(err))

		io.WriteString(w, newPage("Not Found", "That game code is not valid."))

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	securityHeaders(a.cfg, w)

	io.WriteString(w, newPage("Join "+g.Code,
		"Game "+g.Code+" is "+g.State+". POST your name to /api/join/"+g.Code+" to take a seat."))
}
