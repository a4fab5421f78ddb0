package survey

import (
	"context"
	"fmt"
	"log"
	"time"

	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// FormSource yields responses submitted after a checkpoint.
type FormSource interface {
	ResponsesSince(ctx context.Context, since time.Time) ([]FormResponse, error)
}

// SheetsFormSource reads form responses out of the Google Sheet the
// intake form writes to. The first row holds headers; column names come
// straight from the form questions.
type SheetsFormSource struct {
	service       *sheets.Service
	spreadsheetID string
}

// NewSheetsFormSource creates a source for one response spreadsheet.
func NewSheetsFormSource(ctx context.Context, spreadsheetID, apiKey string) (*SheetsFormSource, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("survey: spreadsheet ID is required")
	}
	service, err := sheets.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("survey: failed to create sheets service: %w", err)
	}
	return &SheetsFormSource{service: service, spreadsheetID: spreadsheetID}, nil
}

// ResponsesSince fetches the whole response sheet and keeps rows newer
// than the checkpoint. Response sheets stay small enough that a full
// read per poll is cheaper than tracking row offsets.
func (s *SheetsFormSource) ResponsesSince(ctx context.Context, since time.Time) ([]FormResponse, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, "A:Z").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("survey: failed to read responses: %w", err)
	}
	if len(resp.Values) < 2 {
		return nil, nil
	}

	headers := make([]string, 0, len(resp.Values[0]))
	for _, cell := range resp.Values[0] {
		headers = append(headers, fmt.Sprint(cell))
	}

	var out []FormResponse
	for _, row := range resp.Values[1:] {
		if len(row) == 0 {
			continue
		}
		fields := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(row) {
				fields[header] = fmt.Sprint(row[i])
			} else {
				fields[header] = ""
			}
		}

		response := parseResponseRow(fields)
		if response.RawTimestamp == "" {
			continue
		}
		ts, ok := parseSheetTimestamp(response.RawTimestamp)
		if !ok {
			log.Printf("survey: could not parse timestamp %q, skipping row", response.RawTimestamp)
			continue
		}
		response.Timestamp = ts
		if ts.After(since) {
			out = append(out, response)
		}
	}
	return out, nil
}

func parseResponseRow(fields map[string]string) FormResponse {
	pick := func(keys ...string) string {
		for _, key := range keys {
			if v := fields[key]; v != "" {
				return v
			}
		}
		return ""
	}

	housingDetail := pick("If yes, how urgent is your housing need?", "Housing Priority")
	foodDetail := pick("If yes, how urgent is your food need?", "Food Priority")
	transportDetail := pick("If yes, what type of transportation help do you need?", "Transportation Type")

	return FormResponse{
		RawTimestamp: fields["Timestamp"],
		ClientEmail:  pick("Email Address", "Client Email"),
		ClientName:   pick("Full Name", "Client Name"),
		PhoneNumber:  fields["Phone Number"],
		Needs: map[string]NeedDetail{
			"housing": {
				Needed:   answeredYes(pick("Do you currently need housing assistance?", "Housing Needs")),
				Priority: mapPriority(housingDetail),
				Details:  housingDetail,
			},
			"food": {
				Needed:   answeredYes(pick("Do you need food assistance?", "Food Needs")),
				Priority: mapPriority(foodDetail),
				Details:  foodDetail,
			},
			"transportation": {
				Needed:   answeredYes(pick("Do you need transportation assistance?", "Transportation Needs")),
				Priority: "medium",
				Details:  transportDetail,
			},
		},
		TopPriority:     fields["Top Priority"],
		AdditionalNotes: fields["Additional Notes"],
	}
}

func answeredYes(answer string) bool {
	return answer == "Yes" || answer == "yes"
}
