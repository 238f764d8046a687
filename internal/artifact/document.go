package artifact

import "bytes"

// RewriteSlot locates the element carrying id=slotID in an HTML document and
// rewrites its src attribute to newSrc, inserting the attribute when the
// element has none. Slots are addressed by their logical id, never by byte
// offset. Returns the updated document and whether the slot was found.
func RewriteSlot(doc []byte, slotID, newSrc string) ([]byte, bool) {
	idx := indexOfSlot(doc, slotID)
	if idx < 0 {
		return nil, false
	}
	tagStart := bytes.LastIndexByte(doc[:idx], '<')
	if tagStart < 0 {
		return nil, false
	}
	rel := bytes.IndexByte(doc[idx:], '>')
	if rel < 0 {
		return nil, false
	}
	tagEnd := idx + rel

	tag := doc[tagStart:tagEnd]
	var out bytes.Buffer
	out.Grow(len(doc) + len(newSrc))
	if srcRel := bytes.Index(tag, []byte(`src="`)); srcRel >= 0 {
		valStart := tagStart + srcRel + len(`src="`)
		valRel := bytes.IndexByte(doc[valStart:], '"')
		if valRel < 0 {
			return nil, false
		}
		out.Write(doc[:valStart])
		out.WriteString(newSrc)
		out.Write(doc[valStart+valRel:])
	} else {
		insert := tagEnd
		if doc[tagEnd-1] == '/' {
			insert = tagEnd - 1
		}
		out.Write(doc[:insert])
		out.WriteString(` src="`)
		out.WriteString(newSrc)
		out.WriteString(`"`)
		out.Write(doc[insert:])
	}
	return out.Bytes(), true
}

func indexOfSlot(doc []byte, slotID string) int {
	for _, quote := range []string{`"`, `'`} {
		marker := []byte(`id=` + quote + slotID + quote)
		if idx := bytes.Index(doc, marker); idx >= 0 {
			return idx
		}
	}
	return -1
}
