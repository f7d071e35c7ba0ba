package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/markdave123-py/smartassist-rag/internal/core"
	"github.com/markdave123-py/smartassist-rag/internal/models"
)

// Booking fields in the order they are reported as missing.
const (
	FieldRoomName  = "room_name"
	FieldDate      = "date"
	FieldStartTime = "start_time"
	FieldEndTime   = "end_time"
	FieldReason    = "reason"
)

const createBookingTool = "create_booking"

var bookingFields = []string{FieldRoomName, FieldDate, FieldStartTime, FieldEndTime, FieldReason}

var fieldLabels = map[string]string{
	FieldRoomName:  "the room",
	FieldDate:      "the date",
	FieldStartTime: "the start time",
	FieldEndTime:   "the end time",
	FieldReason:    "the reason for the booking",
}

var bookingTool = core.Tool{
	Name:        createBookingTool,
	Description: "Create a room booking request from the fields the user stated.",
	Params: []core.ToolParam{
		{Name: FieldRoomName, Description: "Name of the room exactly as listed, e.g. LT1"},
		{Name: FieldDate, Description: "Date of the booking as the user said it, e.g. Friday or 12 March"},
		{Name: FieldStartTime, Description: "Start time as the user said it, e.g. 2pm"},
		{Name: FieldEndTime, Description: "End time as the user said it, e.g. 4pm"},
		{Name: FieldReason, Description: "Purpose of the booking"},
	},
	Required: bookingFields,
}

var (
	// bookingKeywords routes a message to the booking flow before any model call.
	bookingKeywords = regexp.MustCompile(`(?i)\b(book|booking|bookings|reserve|reserving|reservation|reservations)\b`)

	// timeEvidence matches explicit times: 2pm, 2 p.m., 14:30, noon, evening.
	timeEvidence = regexp.MustCompile(`(?i)(\b\d{1,2}(:\d{2})?\s*[ap]\.?m\b|\b\d{1,2}:\d{2}\b|\b(noon|midday|midnight|morning|afternoon|evening|night|tonight|o'?clock)\b)`)

	// dateEvidence matches weekdays, months, relative days, d/m or y-m-d
	// forms and ordinals. A bare "may" is a verb, so it needs a day number.
	dateEvidence = regexp.MustCompile(`(?i)(\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)s?\b` +
		`|\b(january|february|march|april|june|july|august|september|october|november|december)\b` +
		`|\b(jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)\b` +
		`|\bmay\s+\d{1,2}\b|\b\d{1,2}(st|nd|rd|th)?\s+(of\s+)?may\b` +
		`|\b(today|tomorrow|tonight|weekend)\b|\b(next|this)\s+week\b` +
		`|\b\d{1,4}[/-]\d{1,2}([/-]\d{1,4})?\b` +
		`|\b\d{1,2}(st|nd|rd|th)\b)`)
)

// IsBookingRequest is the keyword fast path. It makes no external calls.
func IsBookingRequest(message string) bool {
	return bookingKeywords.MatchString(message)
}

// BookingService turns a booking message into a validated booking request
// or a clarification naming the missing fields.
type BookingService struct {
	rooms core.RoomStore
	llm   core.LLMProvider
}

func NewBookingService(rooms core.RoomStore, llm core.LLMProvider) *BookingService {
	return &BookingService{rooms: rooms, llm: llm}
}

// SearchRooms lists the bookable rooms.
func (s *BookingService) SearchRooms(ctx context.Context) ([]models.Room, error) {
	return s.rooms.ListRooms(ctx)
}

// Handle runs the tool-augmented extraction and then re-checks the model's
// fields against evidence in the raw message.
func (s *BookingService) Handle(ctx context.Context, message string) (*models.AnswerResult, error) {
	rooms, err := s.rooms.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	gen, err := s.llm.GenerateWithTools(ctx, bookingSystemPrompt(rooms), message, []core.Tool{bookingTool})
	if err != nil {
		slog.Warn("booking generation failed, using fallback", "err", err)
		return fallbackAnswer(), nil
	}

	if gen == nil || gen.ToolCall == nil || gen.ToolCall.Name != createBookingTool {
		return incomplete(&models.BookingParams{}, bookingFields, rooms), nil
	}

	params := paramsFromArgs(gen.ToolCall.Args)
	missing := validateBooking(message, params, rooms)
	if len(missing) > 0 {
		return incomplete(params, missing, rooms), nil
	}

	return &models.AnswerResult{
		Type: models.AnswerTypeBookingRequest,
		Answer: fmt.Sprintf("Booking request ready: %s on %s from %s to %s for %s.",
			params.RoomName, params.Date, params.StartTime, params.EndTime, params.Reason),
		Citations: []models.Citation{},
		Params:    params,
	}, nil
}

func paramsFromArgs(args map[string]any) *models.BookingParams {
	return &models.BookingParams{
		RoomName:  stringArg(args, FieldRoomName),
		Date:      stringArg(args, FieldDate),
		StartTime: stringArg(args, FieldStartTime),
		EndTime:   stringArg(args, FieldEndTime),
		Reason:    stringArg(args, FieldReason),
	}
}

func stringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// validateBooking clears fields the message gives no evidence for and returns
// the missing fields in canonical order. params is updated in place.
func validateBooking(message string, params *models.BookingParams, rooms []models.Room) []string {
	if params.RoomName != "" && len(rooms) > 0 {
		params.RoomName = canonicalRoom(params.RoomName, rooms)
	}
	if !timeEvidence.MatchString(message) {
		params.StartTime, params.EndTime = "", ""
	}
	if !dateEvidence.MatchString(message) {
		params.Date = ""
	}

	values := map[string]string{
		FieldRoomName:  params.RoomName,
		FieldDate:      params.Date,
		FieldStartTime: params.StartTime,
		FieldEndTime:   params.EndTime,
		FieldReason:    params.Reason,
	}
	var missing []string
	for _, f := range bookingFields {
		if values[f] == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// canonicalRoom returns the listed spelling of name, or "" when no room
// matches ignoring case and spaces.
func canonicalRoom(name string, rooms []models.Room) string {
	key := roomKey(name)
	for _, r := range rooms {
		if roomKey(r.Name) == key {
			return r.Name
		}
	}
	return ""
}

func roomKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

func incomplete(params *models.BookingParams, missing []string, rooms []models.Room) *models.AnswerResult {
	return &models.AnswerResult{
		Type:      models.AnswerTypeBookingIncomplete,
		Answer:    clarification(missing, rooms),
		Citations: []models.Citation{},
		Params:    params,
		Missing:   missing,
	}
}

func clarification(missing []string, rooms []models.Room) string {
	labels := make([]string, len(missing))
	for i, f := range missing {
		labels[i] = fieldLabels[f]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "To book a room I still need %s.", joinNatural(labels))
	if len(rooms) == 0 {
		b.WriteString(" No rooms are currently listed.")
	} else {
		fmt.Fprintf(&b, " Available rooms: %s.", strings.Join(roomNames(rooms), ", "))
	}
	return b.String()
}

func joinNatural(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

func roomNames(rooms []models.Room) []string {
	names := make([]string, len(rooms))
	for i, r := range rooms {
		names[i] = r.Name
	}
	return names
}

func bookingSystemPrompt(rooms []models.Room) string {
	var b strings.Builder
	b.WriteString("You help students and staff request room bookings for the department.\n")
	b.WriteString("Call create_booking with only the values the user actually stated. ")
	b.WriteString("Leave a field empty when the user did not give it; never guess dates or times.\n")
	if len(rooms) > 0 {
		b.WriteString("Available rooms:\n")
		for _, r := range rooms {
			fmt.Fprintf(&b, "- %s (%s, capacity %d)\n", r.Name, r.Location, r.Capacity)
		}
	}
	return b.String()
}
