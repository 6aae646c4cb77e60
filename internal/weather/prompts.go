package weather

import (
	"encoding/json"
	"fmt"
)

const (
	chatSystemPrompt  = "Eres un asistente meteorológico experto que responde preguntas sobre el clima de manera clara y amigable."
	audioSystemPrompt = "Eres un asistente meteorológico amigable que responde consultas de voz."

	answerMaxTokens   = 300
	answerTemperature = 0.7
)

func chatPrompt(fc ForecastContext, question string) string {
	return fmt.Sprintf(`Eres un asistente meteorológico experto. Responde de manera natural y conversacional.

DATOS DEL CLIMA:
%s

PREGUNTA DEL USUARIO: "%s"

INSTRUCCIONES:
- Responde en español de forma clara y amigable
- Si preguntan por un día específico, busca en el pronóstico
- Incluye temperatura, condiciones y probabilidad de lluvia
- Si es relevante, da recomendaciones (llevar paraguas, abrigo, etc.)
- Sé conciso pero informativo (máximo 4-5 líneas)
- Si no tienes datos para el día exacto solicitado, ofrece el pronóstico más cercano disponible

Tu respuesta:`, indentJSON(fc), question)
}

func audioPrompt(fc ForecastContext, transcript string) string {
	return fmt.Sprintf(`Eres un asistente meteorológico experto. El usuario preguntó por VOZ: "%s"

DATOS DEL CLIMA:
%s

INSTRUCCIONES:
- Responde en español de forma natural y conversacional
- Menciona que entendiste su pregunta de voz
- Si preguntan por un día específico, busca en el pronóstico
- Incluye temperatura, condiciones y probabilidad de lluvia
- Da recomendaciones útiles (llevar paraguas, abrigo, etc.)
- Sé conciso pero informativo (máximo 5 líneas)
- Si no tienes datos para el día exacto, ofrece el pronóstico más cercano

Tu respuesta:`, transcript, indentJSON(fc))
}

func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
