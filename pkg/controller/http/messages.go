package http

// User-visible messages of the dashboard
const (
	MsgConnected       = "✅ Se estableció la conexión con la base de datos: "
	MsgMissingFields   = "❌ Por favor, completa todos los campos."
	MsgAuthFailed      = "Contraseña incorrecta."
	MsgConnectFailed   = "Error al conectar a la base de datos: "
	MsgQueryFailed     = "Error al ejecutar la consulta SQL: "
	MsgNotConnected    = "🔒 No se ha establecido conexión con la base de datos. Por favor, ingresa la contraseña correcta para continuar."
	MsgCouldNotConnect = "❌ No se pudo conectar. Verifica la base de datos y la contraseña."
	MsgInvalidDate     = "Fecha inválida, usa el formato AAAA-MM-DD: "
	MsgInternal        = "Error interno del servidor."
)
