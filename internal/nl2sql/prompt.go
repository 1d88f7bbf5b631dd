package nl2sql

import (
	"fmt"

	"github.com/finchat/finchat/internal/schema"
)

const dialectRules = `Sua tarefa é converter a pergunta abaixo em uma consulta SQL para Databricks (Spark SQL) do tipo SELECT.

IMPORTANTE - Regras de sintaxe do Databricks:
- Use DATE_FORMAT(coluna, 'formato') para formatar datas
- Use YEAR(coluna), MONTH(coluna), DAY(coluna) para extrair partes de datas
- NUNCA use STRFTIME (não existe no Databricks)
- Para agrupar por mês/ano: use DATE_FORMAT(data, 'yyyy-MM')
- Formato de data: 'yyyy-MM-dd' (não '%Y-%m-%d')

Exemplos de conversão:
Errado: STRFTIME('%Y-%m', data)
Correto: DATE_FORMAT(data, 'yyyy-MM')

Errado: STRFTIME('%Y', data)
Correto: YEAR(data)

- Retorne apenas o código SQL, sem explicações.
- Use nomes de colunas exatamente como estão no contexto.
- Caso haja filtros de data, considere o formato AAAA-MM-DD (yyyy-MM-dd).`

func BuildPrompt(question string, sc schema.Context) string {
	return fmt.Sprintf("%s\n\n%s\n\nPergunta do usuário: %s\n", sc.Prompt(), dialectRules, question)
}
