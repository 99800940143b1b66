package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/a-h/templ"
)

type planPage struct {
	From, To, Depart string
	Profiles         *ProfileResponse
	Error            string
}

// Plan serves the journey planner page: a form and, once from and to are
// filled in, every Pareto optimal journey of the next window.
func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := planPage{From: q.Get("from"), To: q.Get("to"), Depart: q.Get("depart")}

	status := http.StatusOK
	if data.From != "" && data.To != "" {
		_, resp, err := h.plan(r, "profiles")
		if err != nil {
			status = statusFor(err)
			data.Error = err.Error()
		} else {
			p := resp.(ProfileResponse)
			data.Profiles = &p
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := planTemplate(data).Render(r.Context(), w); err != nil {
		h.logger.Error("rendering plan page", "error", err)
	}
}

func planTemplate(data planPage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		e := templ.EscapeString
		fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Plan a journey | transitscan</title>
</head>
<body>
<main>
<h1>Plan a journey</h1>
<form method="get" action="/plan">
  <label>From <input name="from" value="%s" placeholder="stop id or lat,lon" required></label>
  <label>To <input name="to" value="%s" placeholder="stop id or lat,lon" required></label>
  <label>Leave after <input name="depart" value="%s" placeholder="2006-01-02T15:04:05Z"></label>
  <button type="submit">Search</button>
</form>
`, e(data.From), e(data.To), e(data.Depart))

		if data.Error != "" {
			fmt.Fprintf(w, "<p class=\"error\" role=\"alert\">%s</p>\n", e(data.Error))
		}
		if data.Profiles != nil {
			writeProfiles(w, data.Profiles)
		}
		_, err := io.WriteString(w, "</main>\n</body>\n</html>\n")
		return err
	})
}

func writeProfiles(w io.Writer, p *ProfileResponse) {
	e := templ.EscapeString
	if len(p.Profiles) == 0 {
		io.WriteString(w, "<p>No journeys found in this window.</p>\n")
		return
	}
	for _, sp := range p.Profiles {
		fmt.Fprintf(w, "<section>\n<h2>From %s</h2>\n<ol>\n", e(stopLabel(sp.Stop)))
		for _, j := range sp.Journeys {
			fmt.Fprintf(w, "<li><strong>%s → %s</strong> (%d transfers)\n<ul>\n",
				j.Departure.Format(time.TimeOnly), j.Arrival.Format(time.TimeOnly), j.Transfers)
			for _, leg := range j.Legs {
				what := leg.Kind
				if leg.Kind == legRide {
					what = leg.TripName
					if what == "" {
						what = leg.Trip
					}
				}
				fmt.Fprintf(w, "<li>%s %s from %s to %s, %s</li>\n",
					leg.Departure.Format(time.TimeOnly), e(what),
					e(stopLabel(leg.From)), e(stopLabel(leg.To)), leg.Arrival.Format(time.TimeOnly))
			}
			io.WriteString(w, "</ul></li>\n")
		}
		io.WriteString(w, "</ol>\n</section>\n")
	}
}

func stopLabel(s StopInfo) string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}
