package mcpserver

// StreamFormatContract describes the canonical surface stream wire format
// that LLM producers must follow when driving a session.
const StreamFormatContract = `# Raido Surface Stream Contract

A surface stream is an ordered sequence of UTF-8 text lines. Each line is one
JSON object tagged by a ` + "`" + `kind` + "`" + ` field. Lines may carry a leading ` + "`" + `data:` + "`" + ` prefix
(it is stripped); blank lines are skipped.

## Message kinds

` + "```" + `json
{"kind":"streamHeader","version":"1.0","state":{"user":{"name":"Alice"}}}
{"kind":"layoutChunk","nodes":[{"id":"a","type":"Column","properties":{"children":["t1"]}}]}
{"kind":"layoutRoot","rootId":"a"}
{"kind":"stateUpdate","state":{"user":{"name":"Bob"}}}
{"kind":"statePatch","ops":[{"op":"replace","path":"/user/name","value":"Eve"}]}
{"kind":"layoutPatch","ops":[{"op":"add","targetId":"a","property":"children","nodes":[{"id":"t2","type":"Text"}]}]}
{"kind":"catalogMismatchError","error":"unsupported_widget","message":"no Carousel in catalog"}
` + "```" + `

## Rules

1. **One JSON object per line.** No pretty-printing across lines.
2. **Send the header first.** A stream without a header gets an empty initial
   state, but the protocol version is then unknown.
3. **Nodes reference children by id**, inside a property holding an array of
   id strings (commonly ` + "`" + `children` + "`" + `). Never nest node objects.
4. **Order is free.** ` + "`" + `layoutRoot` + "`" + ` may precede the chunk containing the root
   node; the surface stays buffering until the root id resolves.
5. **Redefining an id overwrites** the previous node outright.
6. **Node types must come from the session catalog.** Types the catalog does
   not declare render without bindable properties.
7. **Bindings** are property values of the form
   ` + "`" + `{"path":"user.name","format":"Hello, {}!"}` + "`" + `. At most one of ` + "`" + `format` + "`" + `,
   ` + "`" + `condition` + "`" + `, ` + "`" + `map` + "`" + ` applies (in that precedence). Inside an
   ` + "`" + `itemTemplate` + "`" + `, prefix per-item paths with ` + "`" + `item.` + "`" + `; unprefixed paths
   always target global state.
8. **State merges are partial.** Objects merge recursively; arrays and
   scalars overwrite. Use ` + "`" + `statePatch` + "`" + ` with ` + "`" + `remove` + "`" + ` to delete keys or
   array indices, and ` + "`" + `add` + "`" + ` with a trailing ` + "`" + `-` + "`" + ` to append to an array.
9. **Repeat lists via** ` + "`" + `itemTemplate` + "`" + ` bound to an array in state instead of
   sending one node per list item.

## Example

` + "```" + `
data: {"kind":"streamHeader","version":"1.0","state":{"items":[{"title":"First"},{"title":"Second"}],"heading":"Inbox"}}
data: {"kind":"layoutChunk","nodes":[{"id":"list","type":"List","properties":{"items":{"path":"items"}},"itemTemplate":{"id":"row","type":"Text","properties":{"text":{"path":"item.title"}}}}]}
data: {"kind":"layoutRoot","rootId":"list"}
` + "```" + `
`
