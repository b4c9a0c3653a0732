package picload

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// EXIF tag constants.
const (
	// Structural IFD0 tags redirecting the walker to sub-IFDs.
	tagExifIFDPointer = 0x8769
	tagGPSIFDPointer  = 0x8825

	tagOrientation = 0x0112

	// GPS SubIFD tags.
	tagGPSLatitudeRef  = 0x0001
	tagGPSLatitude     = 0x0002
	tagGPSLongitudeRef = 0x0003
	tagGPSLongitude    = 0x0004
	tagGPSAltitudeRef  = 0x0005
	tagGPSAltitude     = 0x0006
)

// TIFF field type constants.
const (
	typeByte      = 1
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeSByte     = 6
	typeUndefined = 7
	typeSShort    = 8
	typeSLong     = 9
	typeSRational = 10
)

// typeSizes maps a TIFF field type to its component size in bytes.
var typeSizes = [...]int64{0, 1, 1, 2, 4, 8, 1, 1, 2, 4, 8}

// fieldBytes returns the total byte size of a field, or 0 for an unknown type.
func fieldBytes(fieldType uint16, count uint32) int64 {
	if int(fieldType) >= len(typeSizes) {
		return 0
	}

	return typeSizes[fieldType] * int64(count)
}

// Tag is a display-formatted metadata entry. Raw TIFF field types are never
// exposed upward.
type Tag struct {
	Label string
	Value string
}

// Tags extracts EXIF metadata from the image at path as display-ready
// (label, value) pairs. A missing or malformed EXIF payload yields an empty
// list, never an error; only failing to read the file itself errors.
func Tags(path string, opts ...*Options) ([]Tag, error) {
	o := applyOptions(opts)

	data, err := readFileLimited(path, &o)
	if err != nil {
		return nil, err
	}

	payload := exifPayload(data, extOf(path))
	if payload == nil {
		return nil, nil
	}

	return parseTags(payload), nil
}

// DateTime returns the capture time from a tag list, preferring the
// original-capture timestamp over the file-modification one. The EXIF
// "YYYY:MM:DD HH:MM:SS" form is converted with a real calendar rather than
// a fixed-length-month approximation, so ordering across month and year
// boundaries is exact.
func DateTime(tags []Tag) (time.Time, bool) {
	for _, label := range [...]string{"Date Original", "Date/Time"} {
		for _, t := range tags {
			if t.Label != label {
				continue
			}

			if ts, err := time.Parse("2006:01:02 15:04:05", t.Value); err == nil {
				return ts, true
			}
		}
	}

	return time.Time{}, false
}

// Container tag extractors
//
// Each wrapper format has its own syntax for embedding a TIFF/EXIF blob.
// All extractors return a byte slice positioned at the start of a TIFF
// structure, compatible with the single shared walker below, or nil. All
// failures here are soft: metadata is an enhancement, not a requirement.

var exifHeader = []byte("Exif\x00\x00")

// exifPayload locates the embedded TIFF/EXIF payload for the given file
// extension.
func exifPayload(data []byte, format string) []byte {
	switch format {
	case "jpg", "jpeg":
		return exifFromJPEG(data)
	case "png":
		return exifFromPNG(data)
	case "webp":
		return exifFromRIFF(data)
	case "tiff", "tif":
		return exifFromTIFF(data)
	case "avif", "heic", "heif":
		return exifFromISOBMFF(data)
	case "jxl":
		return exifFromJXL(data)
	}

	return nil
}

// exifFromJPEG scans marker segments for an APP1 segment whose payload
// begins with "Exif\0\0". Scanning stops at SOS; only entropy-coded data
// follows it.
func exifFromJPEG(data []byte) []byte {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil
	}

	pos := 2
	for pos+2 <= len(data) {
		if data[pos] != 0xFF {
			return nil
		}

		marker := data[pos+1]
		if marker == 0xFF { // fill byte before the marker proper
			pos++
			continue
		}

		if marker == 0xDA { // SOS
			break
		}

		// TEM and RSTn are standalone markers with no length word.
		if marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			pos += 2
			continue
		}

		if pos+4 > len(data) {
			return nil
		}

		segLen := int(binary.BigEndian.Uint16(data[pos+2:]))
		if segLen < 2 || pos+2+segLen > len(data) {
			return nil
		}

		if marker == 0xE1 {
			payload := data[pos+4 : pos+2+segLen]
			if bytes.HasPrefix(payload, exifHeader) {
				return payload[len(exifHeader):]
			}
		}

		pos += 2 + segLen
	}

	return nil
}

var pngSignature = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

// exifFromPNG walks length-prefixed chunks for an eXIf chunk, whose payload
// is raw TIFF with no extra prefix.
func exifFromPNG(data []byte) []byte {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil
	}

	pos := len(pngSignature)
	for pos+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[pos:]))
		chunkType := string(data[pos+4 : pos+8])

		if length < 0 || pos+8+length > len(data) {
			return nil
		}

		if chunkType == "eXIf" {
			return data[pos+8 : pos+8+length]
		}

		if chunkType == "IEND" {
			break
		}

		pos += 8 + length + 4 // payload plus CRC
	}

	return nil
}

// exifFromRIFF walks the RIFF chunk list of a WebP file for an EXIF chunk.
// Some encoders redundantly prepend "Exif\0\0" to the chunk payload; it is
// stripped so the walker always starts at the TIFF header.
func exifFromRIFF(data []byte) []byte {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		return nil
	}

	pos := 12
	for pos+8 <= len(data) {
		chunkType := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4:]))

		if size < 0 || pos+8+size > len(data) {
			return nil
		}

		if chunkType == "EXIF" {
			return bytes.TrimPrefix(data[pos+8:pos+8+size], exifHeader)
		}

		pos += 8 + size + size&1 // chunks are 2-byte aligned
	}

	return nil
}

// exifFromTIFF handles raw TIFF files: the file itself is the TIFF
// structure at offset 0.
func exifFromTIFF(data []byte) []byte {
	if validTIFFHeader(data) {
		return data
	}

	return nil
}

func validTIFFHeader(data []byte) bool {
	if len(data) < 8 {
		return false
	}

	switch {
	case data[0] == 'I' && data[1] == 'I':
		return binary.LittleEndian.Uint16(data[2:]) == 42
	case data[0] == 'M' && data[1] == 'M':
		return binary.BigEndian.Uint16(data[2:]) == 42
	}

	return false
}

// exifFromISOBMFF walks the top-level boxes of an AVIF/HEIC file for the
// meta box, then locates the embedded TIFF header within it. The Exif item
// payload carries a 4-byte offset field immediately before the TIFF header;
// scanning for the header pattern itself skips it.
func exifFromISOBMFF(data []byte) []byte {
	pos := 0
	for pos+8 <= len(data) {
		size := int64(binary.BigEndian.Uint32(data[pos:]))
		boxType := string(data[pos+4 : pos+8])
		payloadStart := pos + 8

		switch size {
		case 0: // box extends to end of file
			size = int64(len(data) - pos)
		case 1: // 64-bit extended size
			if pos+16 > len(data) {
				return nil
			}
			size = int64(binary.BigEndian.Uint64(data[pos+8:]))
			payloadStart = pos + 16
		}

		if size < int64(payloadStart-pos) || int64(pos)+size > int64(len(data)) {
			return nil
		}

		if boxType == "meta" {
			return findTIFFHeader(data[payloadStart : pos+int(size)])
		}

		pos += int(size)
	}

	return nil
}

// findTIFFHeader scans for a byte-order marker pair immediately followed by
// the TIFF magic number.
func findTIFFHeader(data []byte) []byte {
	for i := 0; i+8 <= len(data); i++ {
		if (data[i] == 'I' && data[i+1] == 'I' && data[i+2] == 0x2A && data[i+3] == 0x00) ||
			(data[i] == 'M' && data[i+1] == 'M' && data[i+2] == 0x00 && data[i+3] == 0x2A) {
			return data[i:]
		}
	}

	return nil
}

var jxlSignature = []byte{0x00, 0x00, 0x00, 0x0C, 'J', 'X', 'L', ' ', 0x0D, 0x0A, 0x87, 0x0A}

// exifFromJXL walks the box list of a JPEG-XL container for an Exif box,
// whose payload is a 4-byte big-endian offset followed by TIFF data. Bare
// codestreams have no container and carry no EXIF.
func exifFromJXL(data []byte) []byte {
	if !bytes.HasPrefix(data, jxlSignature) {
		return nil
	}

	pos := len(jxlSignature)
	for pos+8 <= len(data) {
		size := int64(binary.BigEndian.Uint32(data[pos:]))
		boxType := string(data[pos+4 : pos+8])
		payloadStart := pos + 8

		switch size {
		case 0:
			size = int64(len(data) - pos)
		case 1:
			if pos+16 > len(data) {
				return nil
			}
			size = int64(binary.BigEndian.Uint64(data[pos+8:]))
			payloadStart = pos + 16
		}

		if size < int64(payloadStart-pos) || int64(pos)+size > int64(len(data)) {
			return nil
		}

		if boxType == "Exif" {
			payload := data[payloadStart : pos+int(size)]
			if len(payload) < 4 {
				return nil
			}

			offset := int64(binary.BigEndian.Uint32(payload))
			if offset+4 >= int64(len(payload)) {
				return nil
			}

			return payload[4+offset:]
		}

		pos += int(size)
	}

	return nil
}

// TIFF/EXIF tag walker
//
// One parser, many discovery strategies: every container extractor above
// converges on this walker. All multi-byte reads respect the byte-order
// marker and are bounds-checked; out-of-range reads fail soft by skipping
// the field.

// tiffReader wraps a TIFF blob with endian-aware, bounds-checked reads.
type tiffReader struct {
	data  []byte
	order binary.ByteOrder
}

func (r *tiffReader) u16(offset int) uint16 {
	if offset < 0 || offset+2 > len(r.data) {
		return 0
	}

	return r.order.Uint16(r.data[offset:])
}

func (r *tiffReader) u32(offset int) uint32 {
	if offset < 0 || offset+4 > len(r.data) {
		return 0
	}

	return r.order.Uint32(r.data[offset:])
}

// ascii reads a NUL-terminated string of at most max bytes, replacing
// non-printable bytes.
func (r *tiffReader) ascii(offset, max int) string {
	if offset < 0 || offset >= len(r.data) {
		return ""
	}

	end := offset
	for end < len(r.data) && end < offset+max && r.data[end] != 0 {
		end++
	}

	out := make([]byte, end-offset)
	for i, b := range r.data[offset:end] {
		if b < 0x20 || b > 0x7E {
			b = '?'
		}
		out[i] = b
	}

	return string(out)
}

// rational reads an unsigned RATIONAL (numerator, denominator) pair.
func (r *tiffReader) rational(offset int) (uint32, uint32) {
	return r.u32(offset), r.u32(offset + 4)
}

// ratio reads a RATIONAL as a float, treating a zero denominator as zero.
func (r *tiffReader) ratio(offset int) float64 {
	num, den := r.rational(offset)
	if den == 0 {
		return 0
	}

	return float64(num) / float64(den)
}

// openTIFF validates the TIFF header and returns a reader plus the IFD0
// offset, or nil on any malformation.
func openTIFF(data []byte) (*tiffReader, int) {
	if len(data) < 8 {
		return nil, 0
	}

	var order binary.ByteOrder
	switch {
	case data[0] == 'I' && data[1] == 'I':
		order = binary.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		order = binary.BigEndian
	default:
		return nil, 0
	}

	r := &tiffReader{data: data, order: order}
	if r.u16(2) != 42 {
		return nil, 0
	}

	ifdOffset := int(r.u32(4))
	if ifdOffset < 8 || ifdOffset+2 > len(data) {
		return nil, 0
	}

	return r, ifdOffset
}

// exifOrientation is the narrow fast path: it returns the orientation tag
// (1-8) from a TIFF blob without building the full tag list. Absent,
// malformed, or out-of-range values all mean "apply no transform".
func exifOrientation(tiff []byte) int {
	r, ifdOffset := openTIFF(tiff)
	if r == nil {
		return 1
	}

	entries := int(r.u16(ifdOffset))
	for i := 0; i < entries; i++ {
		entry := ifdOffset + 2 + i*12
		if entry+12 > len(r.data) {
			break
		}

		if r.u16(entry) != tagOrientation {
			continue
		}

		// SHORT with count 1, value inline in the first 2 offset bytes.
		if r.u16(entry+2) != typeShort || r.u32(entry+4) != 1 {
			break
		}

		if v := int(r.u16(entry + 8)); v >= 1 && v <= 8 {
			return v
		}

		break
	}

	return 1
}

// tagLabel pairs a TIFF tag number with its display label.
type tagLabel struct {
	tag   uint16
	label string
}

// Known IFD0 tags.
var ifd0Labels = []tagLabel{
	{0x010F, "Make"},
	{0x0110, "Model"},
	{0x0112, "Orientation"},
	{0x011A, "X Resolution"},
	{0x011B, "Y Resolution"},
	{0x0131, "Software"},
	{0x0132, "Date/Time"},
	{0x013B, "Artist"},
	{0x8298, "Copyright"},
}

// Known EXIF sub-IFD tags.
var exifLabels = []tagLabel{
	{0x829A, "Exposure Time"},
	{0x829D, "F-Number"},
	{0x8827, "ISO"},
	{0x9003, "Date Original"},
	{0x9004, "Date Digitized"},
	{0x9204, "Exposure Bias"},
	{0x9207, "Metering Mode"},
	{0x9209, "Flash"},
	{0x920A, "Focal Length"},
	{0xA001, "Color Space"},
	{0xA002, "Width"},
	{0xA003, "Height"},
	{0xA402, "Exposure Mode"},
	{0xA403, "White Balance"},
	{0xA434, "Lens Model"},
}

func lookupLabel(labels []tagLabel, tag uint16) string {
	for _, l := range labels {
		if l.tag == tag {
			return l.label
		}
	}

	return ""
}

// parseTags walks the IFD chain (IFD0, then the EXIF and GPS sub-IFDs) and
// returns display-formatted entries.
func parseTags(tiff []byte) []Tag {
	r, ifdOffset := openTIFF(tiff)
	if r == nil {
		return nil
	}

	var tags []Tag
	exifIFD, gpsIFD := r.walkIFD(ifdOffset, ifd0Labels, &tags)

	if exifIFD > 0 {
		r.walkIFD(exifIFD, exifLabels, &tags)
	}

	if gpsIFD > 0 {
		r.walkGPS(gpsIFD, &tags)
	}

	return tags
}

// valueOffset resolves a field's data location: inline in the entry's final
// 4 bytes when the total size fits, otherwise behind the offset those bytes
// hold. Returns false when the field is unreadable.
func (r *tiffReader) valueOffset(entry int, fieldType uint16, count uint32) (int, bool) {
	size := fieldBytes(fieldType, count)
	if size <= 0 {
		return 0, false
	}

	if size <= 4 {
		return entry + 8, true
	}

	offset := int(r.u32(entry + 8))
	if offset < 8 || int64(offset)+size > int64(len(r.data)) {
		return 0, false
	}

	return offset, true
}

// walkIFD reads one Image File Directory, appending formatted entries for
// known tags and intercepting the two structural pointer tags.
func (r *tiffReader) walkIFD(ifdOffset int, labels []tagLabel, out *[]Tag) (exifIFD, gpsIFD int) {
	if ifdOffset < 0 || ifdOffset+2 > len(r.data) {
		return 0, 0
	}

	entries := int(r.u16(ifdOffset))
	for i := 0; i < entries; i++ {
		entry := ifdOffset + 2 + i*12
		if entry+12 > len(r.data) {
			break
		}

		tag := r.u16(entry)
		fieldType := r.u16(entry + 2)
		count := r.u32(entry + 4)

		switch tag {
		case tagExifIFDPointer:
			if fieldType == typeLong {
				exifIFD = int(r.u32(entry + 8))
			}
			continue
		case tagGPSIFDPointer:
			if fieldType == typeLong {
				gpsIFD = int(r.u32(entry + 8))
			}
			continue
		}

		label := lookupLabel(labels, tag)
		if label == "" {
			continue
		}

		offset, ok := r.valueOffset(entry, fieldType, count)
		if !ok {
			continue
		}

		if value := r.formatValue(tag, fieldType, count, offset); value != "" {
			*out = append(*out, Tag{Label: label, Value: value})
		}
	}

	return exifIFD, gpsIFD
}

// formatValue renders one field for display.
func (r *tiffReader) formatValue(tag, fieldType uint16, count uint32, offset int) string {
	switch fieldType {
	case typeASCII:
		return r.ascii(offset, int(count))
	case typeShort:
		return formatShort(tag, uint32(r.u16(offset)))
	case typeLong:
		return fmt.Sprintf("%d", r.u32(offset))
	case typeRational:
		num, den := r.rational(offset)
		return formatRational(tag, num, den)
	case typeSRational:
		num, den := int32(r.u32(offset)), int32(r.u32(offset+4))
		return formatSRational(tag, num, den)
	}

	return ""
}

// formatShort renders SHORT values, mapping well-known enumerations to
// readable names.
func formatShort(tag uint16, v uint32) string {
	switch tag {
	case tagOrientation:
		switch v {
		case 1:
			return "Normal"
		case 2:
			return "Flipped horizontally"
		case 3:
			return "Rotated 180"
		case 4:
			return "Flipped vertically"
		case 5:
			return "Transposed"
		case 6:
			return "Rotated 90 CW"
		case 7:
			return "Transversed"
		case 8:
			return "Rotated 270 CW"
		}
	case 0x9207: // MeteringMode
		switch v {
		case 0:
			return "Unknown"
		case 1:
			return "Average"
		case 2:
			return "Center-weighted"
		case 3:
			return "Spot"
		case 4:
			return "Multi-spot"
		case 5:
			return "Pattern"
		case 6:
			return "Partial"
		}
	case 0x9209: // Flash
		if v&1 == 0 {
			return "No flash"
		}
		return "Flash fired"
	case 0xA001: // ColorSpace
		switch v {
		case 1:
			return "sRGB"
		case 0xFFFF:
			return "Uncalibrated"
		}
	case 0xA402: // ExposureMode
		switch v {
		case 0:
			return "Auto"
		case 1:
			return "Manual"
		case 2:
			return "Auto bracket"
		}
	case 0xA403: // WhiteBalance
		switch v {
		case 0:
			return "Auto"
		case 1:
			return "Manual"
		}
	}

	return fmt.Sprintf("%d", v)
}

// formatRational renders unsigned RATIONAL values, with per-tag display
// conventions for exposure, aperture, focal length and resolution.
func formatRational(tag uint16, num, den uint32) string {
	if den == 0 {
		return "0"
	}

	switch tag {
	case 0x829A: // ExposureTime: fractions below one second
		if num == 0 {
			return "0s"
		}
		if num >= den {
			return formatDecimal(float64(num)/float64(den)) + "s"
		}
		return fmt.Sprintf("1/%ds", den/num)
	case 0x829D: // FNumber
		return "f/" + formatDecimal(float64(num)/float64(den))
	case 0x920A: // FocalLength
		return formatDecimal(float64(num)/float64(den)) + "mm"
	case 0x011A, 0x011B: // X/Y Resolution
		return fmt.Sprintf("%d dpi", num/den)
	}

	if den == 1 {
		return fmt.Sprintf("%d", num)
	}

	return fmt.Sprintf("%d/%d", num, den)
}

// formatSRational renders signed RATIONAL values.
func formatSRational(tag uint16, num, den int32) string {
	if den == 0 {
		return "0"
	}

	if tag == 0x9204 { // ExposureBias
		ev := float64(num) / float64(den)
		if ev >= 0 {
			return "+" + formatDecimal(ev) + " EV"
		}
		return formatDecimal(ev) + " EV"
	}

	if den == 1 {
		return fmt.Sprintf("%d", num)
	}

	return fmt.Sprintf("%d/%d", num, den)
}

// formatDecimal prints with the fewest decimals that still represent the
// value to two places.
func formatDecimal(v float64) string {
	switch {
	case abs(v-round(v)) < 0.01:
		return fmt.Sprintf("%.0f", v)
	case abs(v*10-round(v*10)) < 0.01:
		return fmt.Sprintf("%.1f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func round(v float64) float64 {
	if v < 0 {
		return float64(int64(v - 0.5))
	}
	return float64(int64(v + 0.5))
}

// walkGPS reads the GPS sub-IFD. Coordinates are stored as three RATIONAL
// pairs (degrees, minutes, seconds) plus a hemisphere reference and are
// converted to signed decimal degrees.
func (r *tiffReader) walkGPS(ifdOffset int, out *[]Tag) {
	if ifdOffset < 0 || ifdOffset+2 > len(r.data) {
		return
	}

	var (
		latRef, lonRef   byte
		latDMS, lonDMS   [3]float64
		hasLat, hasLon   bool
		altitude         float64
		altBelow, hasAlt bool
	)

	entries := int(r.u16(ifdOffset))
	for i := 0; i < entries; i++ {
		entry := ifdOffset + 2 + i*12
		if entry+12 > len(r.data) {
			break
		}

		tag := r.u16(entry)
		fieldType := r.u16(entry + 2)
		count := r.u32(entry + 4)

		offset, ok := r.valueOffset(entry, fieldType, count)
		if !ok {
			continue
		}

		switch tag {
		case tagGPSLatitudeRef:
			if fieldType == typeASCII && offset < len(r.data) {
				latRef = r.data[offset]
			}
		case tagGPSLatitude:
			if fieldType == typeRational && count == 3 {
				latDMS = [3]float64{r.ratio(offset), r.ratio(offset + 8), r.ratio(offset + 16)}
				hasLat = true
			}
		case tagGPSLongitudeRef:
			if fieldType == typeASCII && offset < len(r.data) {
				lonRef = r.data[offset]
			}
		case tagGPSLongitude:
			if fieldType == typeRational && count == 3 {
				lonDMS = [3]float64{r.ratio(offset), r.ratio(offset + 8), r.ratio(offset + 16)}
				hasLon = true
			}
		case tagGPSAltitudeRef:
			if fieldType == typeByte && offset < len(r.data) {
				altBelow = r.data[offset] == 1
			}
		case tagGPSAltitude:
			if fieldType == typeRational {
				altitude = r.ratio(offset)
				hasAlt = true
			}
		}
	}

	if hasLat && hasLon {
		lat := latDMS[0] + latDMS[1]/60 + latDMS[2]/3600
		if latRef == 'S' {
			lat = -lat
		}

		lon := lonDMS[0] + lonDMS[1]/60 + lonDMS[2]/3600
		if lonRef == 'W' {
			lon = -lon
		}

		*out = append(*out, Tag{Label: "GPS", Value: fmt.Sprintf("%.6f, %.6f", lat, lon)})
	}

	if hasAlt {
		if altBelow {
			altitude = -altitude
		}

		*out = append(*out, Tag{Label: "Altitude", Value: fmt.Sprintf("%.1fm", altitude)})
	}
}
