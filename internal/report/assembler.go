package report

import (
	"fmt"
	"sort"
	"time"

	"pills-bot/internal/records"
)

const (
	DefaultTitle = "Отчет о приеме лекарств"

	DosesHeading = "Принятые лекарства:"
	NotesHeading = "Заметки о состоянии:"

	dateLayout = "02.01.2006"
	timeLayout = "15:04"
)

// Document is the renderer-agnostic report tree.
type Document struct {
	Title       string
	GeneratedAt time.Time
	Sections    []Section
}

// Section groups the lines of one calendar date.
// Doses and Notes are nil when nothing was recorded of that kind on Date.
type Section struct {
	Date  time.Time
	Label string
	Doses *Subsection
	Notes *Subsection
}

type Subsection struct {
	Heading string
	Lines   []string
}

// Assembler groups a UserRecordSet into date sections.
// The zero value groups by dates in time.Local.
type Assembler struct {
	Location *time.Location
}

func NewAssembler(loc *time.Location) Assembler {
	return Assembler{Location: loc}
}

// Assemble builds the document for set. It never fails and does not touch
// the caller's slices; an empty set yields a document without sections,
// callers are expected to check set.Empty() first.
func (a Assembler) Assemble(set records.UserRecordSet) Document {
	loc := a.location()

	pills := append([]records.DoseEvent(nil), set.Pills...)
	sort.SliceStable(pills, func(i, j int) bool { return pills[i].TakenAt.Before(pills[j].TakenAt) })
	notes := append([]records.HealthNote(nil), set.Notes...)
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].CreatedAt.Before(notes[j].CreatedAt) })

	pillsByDate := make(map[time.Time][]records.DoseEvent)
	notesByDate := make(map[time.Time][]records.HealthNote)
	var dates []time.Time
	seen := make(map[time.Time]bool)

	for _, p := range pills {
		d := calendarDate(p.TakenAt, loc)
		pillsByDate[d] = append(pillsByDate[d], p)
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	for _, n := range notes {
		d := calendarDate(n.CreatedAt, loc)
		notesByDate[d] = append(notesByDate[d], n)
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	doc := Document{Title: DefaultTitle, Sections: make([]Section, 0, len(dates))}
	for _, d := range dates {
		sec := Section{Date: d, Label: d.Format(dateLayout)}
		if bucket, ok := pillsByDate[d]; ok {
			sub := &Subsection{Heading: DosesHeading, Lines: make([]string, 0, len(bucket))}
			for _, p := range bucket {
				sub.Lines = append(sub.Lines, FormatDose(p, loc))
			}
			sec.Doses = sub
		}
		if bucket, ok := notesByDate[d]; ok {
			sub := &Subsection{Heading: NotesHeading, Lines: make([]string, 0, len(bucket))}
			for _, n := range bucket {
				sub.Lines = append(sub.Lines, FormatNote(n, loc))
			}
			sec.Notes = sub
		}
		doc.Sections = append(doc.Sections, sec)
	}
	return doc
}

// FormatDose renders "HH:MM — name (dose)".
func FormatDose(p records.DoseEvent, loc *time.Location) string {
	return fmt.Sprintf("%s — %s (%s)", p.TakenAt.In(loc).Format(timeLayout), p.PillName, p.Dose)
}

// FormatNote renders "HH:MM — note".
func FormatNote(n records.HealthNote, loc *time.Location) string {
	return fmt.Sprintf("%s — %s", n.CreatedAt.In(loc).Format(timeLayout), n.Note)
}

func (a Assembler) location() *time.Location {
	if a.Location == nil {
		return time.Local
	}
	return a.Location
}

// calendarDate truncates t to midnight of its local date in loc.
func calendarDate(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
