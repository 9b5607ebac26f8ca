package mail

import "html/template"

type templateData struct {
	Name        string
	BookingID   int
	Description string
	Date        string
	Room        string
	Start       string
	End         string
}

const bodyTemplate = `<html>
<body>
    <p>Hello {{.Data.Name}}!</p>
    <p>{{.Intro}}</p>
    <table style="width: 100%; border-collapse: collapse;">
        {{- range .Rows}}
        <tr style="border-bottom: 1px solid #ddd;">
            <td style="padding: 8px;"><strong>{{.Label}}:</strong></td>
            <td style="padding: 8px;">{{.Value}}</td>
        </tr>
        {{- end}}
    </table>
    <p>{{.Outro}}</p>
    <p>Best regards,<br>Meeting Room Booking Team</p>
</body>
</html>
`

var body = template.Must(template.New("body").Parse(bodyTemplate))

type row struct {
	Label string
	Value any
}

type page struct {
	Data  templateData
	Intro string
	Outro string
	Rows  []row
}

func newPage(d templateData, intro, outro string) page {
	return page{
		Data:  d,
		Intro: intro,
		Outro: outro,
		Rows: []row{
			{"Booking ID", d.BookingID},
			{"Meeting Title", d.Description},
			{"Date", d.Date},
			{"Location", d.Room},
			{"Start Time", d.Start},
			{"End Time", d.End},
		},
	}
}

func confirmationPage(d templateData) page {
	return newPage(d,
		"We're thrilled to confirm your booking. Here are the details of your reservation:",
		"Get ready for a productive meeting!")
}

func cancellationPage(d templateData) page {
	return newPage(d,
		"Your booking has been canceled. Here are the details:",
		"Contact us if you have any questions.")
}
