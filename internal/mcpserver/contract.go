package mcpserver

// PhraseGrammar describes the relative-date phrases the resolver accepts and
// the slot format used for booking. LLM clients should read it before calling
// resolve_range, free_slots or book_slot.
const PhraseGrammar = `# Agenda Phrase Grammar

Phrases are resolved against the server's current date in its configured
timezone. Every phrase names one or more whole days; each day is then clamped
to working hours, 08:59 to 18:01.

## Accepted phrases

| Phrase                                     | Days covered                              |
|--------------------------------------------|-------------------------------------------|
| ` + "`tomorrow`" + `, ` + "`tmr`" + `                          | the next day                              |
| ` + "`the day after tomorrow`" + `, ` + "`the day after tmr`" + ` | two days from today                       |
| ` + "`in <n> day(s)`" + `                           | the single day n days from today          |
| ` + "`in <n> week(s)`" + `                          | Monday to Sunday, n weeks after this week |
| ` + "`in <n> month(s)`" + `                         | the whole month, n months after this one  |
| ` + "`this week`" + `, ` + "`next week`" + `                 | Monday to Sunday                          |
| ` + "`this month`" + `, ` + "`next month`" + `               | first to last day of the month            |
| ` + "`this <Weekday>`" + `, ` + "`next <Weekday>`" + `       | that weekday in this or next week         |
| ` + "`in a few days`" + `, ` + "`recently`" + `, ` + "`soon`" + `  | the next seven days                       |
| ` + "`DD/MM/YYYY`" + `                              | that exact date                           |

## Rules

1. Keywords are lowercase and separated by whitespace. Extra words fail.
2. ` + "`<n>`" + ` is a non-negative integer written in digits (` + "`in 0 days`" + ` is today).
3. Weekdays are capitalised English names or prefixes of at least three
   letters: ` + "`Mon`" + `, ` + "`Thu`" + `, ` + "`Thurs`" + `, ` + "`Saturday`" + `.
4. Weeks start on Monday.
5. Anything else is rejected; the server never guesses a default date.

## Slots

Free slots and bookings use the display form
` + "`DD/MM/YYYY HH:MM - HH:MM`" + `, for example ` + "`03/01/2024 10:00 - 14:00`" + `.
A slot spanning days repeats the date on the end: ` + "`01/01/2024 08:59 - 07/01/2024 18:01`" + `.
Pass one of the slots returned by free_slots (or a sub-range of it) to book_slot.

## Example

1. ` + "`free_slots(phrase=\"next Thu\", person=\"alice\")`" + `
   returns ` + "`[\"11/01/2024 08:59 - 10:00\", \"11/01/2024 11:00 - 18:01\"]`" + `.
2. ` + "`book_slot(person=\"alice\", slot=\"11/01/2024 14:00 - 15:00\", details=\"Dentist\")`" + `.
`
