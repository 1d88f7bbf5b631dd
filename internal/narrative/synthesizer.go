// Package narrative writes the prose analysis that answers the user's question
// from the retrieved rows.
package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/finchat/finchat/internal/llm"
	"github.com/finchat/finchat/internal/observability"
	"github.com/finchat/finchat/internal/schema"
	"github.com/finchat/finchat/internal/warehouse"
)

const promptTemplate = `Você é um analista de dados especialista em finanças pessoais. Sua tarefa é analisar um conjunto de dados extraído em resposta a uma pergunta de um usuário e apresentar os resultados de forma clara e estruturada.

Pergunta Original do Usuário:
"%s"

Contexto do Banco de Dados:
%s

Dados Extraídos para Análise:
%s

Sua Resposta (Siga esta estrutura rigorosamente, em três parágrafos sem títulos):

(Comece com uma frase única e objetiva que responda diretamente à pergunta do usuário. Ex: "No total, você gastou R$ X em Y nos últimos Z meses.")

(Aqui, detalhe os dados. Descreva as tendências, compare os períodos, aponte o mês de maior e menor valor e calcule a média, se aplicável. Apresente os fatos observados nos dados.)

(Esta é a parte mais importante. O que os dados significam? Qual é a história por trás dos números? Se houve um aumento, qual poderia ser a causa? Ofereça uma interpretação. Ex: "O aumento de 17%% em junho pode indicar mais deslocamentos ou uma alta no preço dos combustíveis.")

Regras Adicionais:
- Baseie-se estritamente nos dados fornecidos.
- Se não houver dados, diga isso claramente na primeira frase.
- Não use formatação como negrito ou itálico.
- Lembre-se, você é um analista, não um consultor financeiro. Não dê conselhos de investimento.
`

type Synthesizer struct {
	Model  llm.Model
	Logger *slog.Logger
}

func NewSynthesizer(model llm.Model, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{Model: model, Logger: logger}
}

// Synthesize returns the model text trimmed and otherwise untouched.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, sc schema.Context, rows warehouse.RowSet) (string, error) {
	if s.Model == nil {
		return "", fmt.Errorf("language model is not configured")
	}
	reply, err := s.Model.Generate(ctx, BuildPrompt(question, sc, rows))
	if err != nil {
		return "", fmt.Errorf("generate narrative: %w", err)
	}
	text := strings.TrimSpace(reply)
	if s.Logger != nil {
		s.Logger.DebugContext(ctx, "narrative synthesized",
			observability.TraceAttr(ctx),
			slog.Int("chars", len([]rune(text))),
		)
	}
	return text, nil
}

func BuildPrompt(question string, sc schema.Context, rows warehouse.RowSet) string {
	return fmt.Sprintf(promptTemplate, strings.TrimSpace(question), sc.Prompt(), rows.PromptText())
}
