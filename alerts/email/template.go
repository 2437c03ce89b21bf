package email

type templateData struct {
	Name      string
	Phone     string
	Location  string
	MapsURL   string
	Network   string
	Trigger   string
	AlertID   string
	Timestamp string
	HasAudio  bool
	AudioSecs int
}

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin:0;padding:0;background-color:#f0f0f0;font-family:'Helvetica Neue',Helvetica,Arial,sans-serif;">
<table width="100%" cellpadding="0" cellspacing="0" style="background-color:#f0f0f0;padding:40px 20px;">
<tr>
<td align="center">
<table width="600" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:8px;overflow:hidden;">

<tr><td style="background:#ef4444;height:6px;"></td></tr>

<tr>
<td style="padding:32px 40px;text-align:center;border-bottom:1px solid #e9ecef;">
<h1 style="margin:0 0 8px 0;font-size:24px;font-weight:600;color:#333;">🚨 Emergency Alert</h1>
<p style="margin:0;font-size:14px;color:#666;">{{.Name}} needs help</p>
</td>
</tr>

<tr>
<td style="padding:32px 40px;border-bottom:1px solid #e9ecef;">
<table width="100%" cellpadding="0" cellspacing="0">
<tr>
<td width="50%" style="padding:12px 0;vertical-align:top;">
<p style="margin:0 0 4px 0;font-size:12px;color:#999;">Phone</p>
<p style="margin:0;font-size:14px;color:#333;font-weight:500;">{{.Phone}}</p>
</td>
<td width="50%" style="padding:12px 0;vertical-align:top;">
<p style="margin:0 0 4px 0;font-size:12px;color:#999;">Network</p>
<p style="margin:0;font-size:14px;color:#333;">{{.Network}}</p>
</td>
</tr>
<tr>
<td colspan="2" style="padding:12px 0;vertical-align:top;">
<p style="margin:0 0 4px 0;font-size:12px;color:#999;">Location</p>
{{if .MapsURL}}<a href="{{.MapsURL}}" style="font-size:14px;color:#3b82f6;">{{.Location}}</a>{{else}}<p style="margin:0;font-size:14px;color:#333;">{{.Location}}</p>{{end}}
</td>
</tr>
<tr>
<td width="50%" style="padding:12px 0;vertical-align:top;">
<p style="margin:0 0 4px 0;font-size:12px;color:#999;">Trigger</p>
<p style="margin:0;font-size:14px;color:#333;">{{.Trigger}}</p>
</td>
<td width="50%" style="padding:12px 0;vertical-align:top;">
<p style="margin:0 0 4px 0;font-size:12px;color:#999;">Time</p>
<p style="margin:0;font-size:14px;color:#333;">{{.Timestamp}}</p>
</td>
</tr>
</table>
</td>
</tr>

{{if .HasAudio}}
<tr>
<td style="padding:24px 40px;border-bottom:1px solid #e9ecef;">
<p style="margin:0;font-size:14px;color:#333;">An audio recording{{if .AudioSecs}} ({{.AudioSecs}}s){{end}} is attached.</p>
</td>
</tr>
{{end}}

<tr>
<td style="padding:20px 40px;text-align:center;">
<p style="margin:0;font-size:12px;color:#999;font-family:monospace;">{{.AlertID}}</p>
</td>
</tr>

</table>
</td>
</tr>
</table>
</body>
</html>`
