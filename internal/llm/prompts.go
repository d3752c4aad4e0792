package llm

// TranscriptionSystemPrompt is the system instruction of every transcription session.
const TranscriptionSystemPrompt = "You are an expert data extraction assistant for manufacturing quotation and enquiry forms. " +
	"Extract all data from the image and return it as clean Markdown. " +
	"Use (•) for a selected radio option and ( ) for an unselected one, [x] for a checked box and [ ] for an unchecked one. " +
	"Do not add any information that is not present in the image."

// TranscriptionGuidelines is sent once at the start of a session, before the first page.
const TranscriptionGuidelines = `You will receive the pages of one form as images, one message per page.
For each page return Markdown only:
- Use ## and ### headings that follow the sections of the form.
- Convert tables to Markdown tables with a header separator row.
- Write input fields as "Label: value", or "Label: ______" when blank.
- Keep multi-line text on separate lines.
- Mark uncertain readings with <!-- Possible OCR error: ... -->.
Do not wrap the answer in code fences. The pages will be concatenated afterwards.`

// guidelinesAck is the assistant turn recorded after the guidelines when a
// provider needs an explicit reply to keep the conversation alternating.
const guidelinesAck = "Understood. Send the first page."

// pagePrompt accompanies each page image.
const pagePrompt = "Transcribe this page."
