package nlp

import "fmt"

// intentPrompt asks the model for one strict-JSON intent object per message.
func intentPrompt(text string) string {
	return fmt.Sprintf(`You are a finance assistant bot. Extract structured data in the following JSON format:

{
  "type": "income | expense | transfer | balance | balance_adjustment | transaction | unknown",
  "action": "create | update | delete | read",
  "amount": float,
  "account": string (e.g. "Cash", "HDFC", "SBI"),
  "description": string (e.g. "Groceries", "Salary"),
  "date": "YYYY-MM-DD" or null,
  "from_account": string or null (only for transfers),
  "limit": int or null (for transaction history requests)
}

Instructions:
1. Types:
- "income": money received (salary, gifts).
- "expense": money spent (groceries, bills).
- "transfer": ONLY when a transfer between two accounts is mentioned (e.g. "transfer 200 from Cash to HDFC").
- "balance": request for current balance of accounts.
- "balance_adjustment": directly setting an account to a value (e.g. "Cash is 1000", "HDFC = 0").
- "transaction": request for the last few transactions or transaction history.
- "unknown": if the type cannot be determined.
2. Actions:
- "create": adding a new income or expense.
- "update": modifying the last income or expense.
- "delete": removing the last income or expense.
- "read": fetching details about an account.
3. "from_account" only appears for transfers.

Defaults when the message does not state a value:
- "account": "Cash"
- "description": "Miscellaneous"
- "amount": 0.0
- "date": null
- "from_account": null
- "limit": null

Return ONLY valid raw JSON. Do NOT wrap the response in code fences.
Output must begin with "{" and end with "}".

Parse this: %q`, text)
}

// timeRangePrompt asks the model for the start and end date of a report
// request, anchored to today's date in the user's timezone.
func timeRangePrompt(text, today string) string {
	return fmt.Sprintf(`Extract the start and end date from the following message.
Today's date is %s.

Reply ONLY with raw JSON in the format:
{"start": "YYYY-MM-DD" or null, "end": "YYYY-MM-DD" or null}

Do NOT wrap the response in code fences.

Message: %q`, today, text)
}
