package mail

const invitationHTML = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #222;">
  <p>Hi,</p>
  <p>{{ .InviterName | default "A teammate" }} invited you to join <strong>{{ .CompanyName }}</strong> on Catalog Pilot as {{ .Role | lower }}.</p>
  <p><a href="{{ .AcceptURL }}" style="background:#2563eb;color:#fff;padding:10px 16px;border-radius:4px;text-decoration:none;">Accept invitation</a></p>
  <p style="color:#666;font-size:12px;">This invitation expires on {{ humanDate .ExpiresAt }}.</p>
</body>
</html>`

const invitationText = `Hi,

{{ .InviterName | default "A teammate" }} invited you to join {{ .CompanyName }} on Catalog Pilot as {{ .Role | lower }}.

Accept the invitation: {{ .AcceptURL }}

This invitation expires on {{ humanDate .ExpiresAt }}.
`
