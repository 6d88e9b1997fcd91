package telemetry

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

const reportingInfo = `Rasa Open Source reports anonymous usage telemetry to help improve the product
for all its users.

If you'd like to opt-out, you can use ` + "`rasa telemetry disable`" + `.
To learn more, check out https://rasa.com/docs/rasa/telemetry/telemetry.`

var noticeStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#5a17ee")).
	Padding(0, 1)

// PrintReportingInfo prints the first-run notice.
func PrintReportingInfo(out io.Writer) {
	fmt.Fprintln(out, noticeStyle.Render(reportingInfo))
}
