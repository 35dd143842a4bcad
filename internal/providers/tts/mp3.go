package tts

// Layer III bitrates in kbit/s indexed by the header's bitrate field.
var (
	mpeg1L3Bitrates = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
	mpeg2L3Bitrates = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0}
)

// EstimateMP3Duration returns the clip length in seconds assuming a constant
// bitrate, using the first Layer III frame header after any ID3v2 tag. It
// returns 0 when no frame header is found.
func EstimateMP3Duration(data []byte) float64 {
	offset := 0
	if len(data) >= 10 && string(data[:3]) == "ID3" {
		size := int(data[6]&0x7f)<<21 | int(data[7]&0x7f)<<14 | int(data[8]&0x7f)<<7 | int(data[9]&0x7f)
		offset = 10 + size
	}
	for i := offset; i+4 <= len(data); i++ {
		if data[i] != 0xff || data[i+1]&0xe0 != 0xe0 {
			continue
		}
		version := (data[i+1] >> 3) & 0x03
		layer := (data[i+1] >> 1) & 0x03
		bitrateIndex := data[i+2] >> 4
		if layer != 0x01 || version == 0x01 {
			continue
		}
		kbps := mpeg2L3Bitrates[bitrateIndex]
		if version == 0x03 {
			kbps = mpeg1L3Bitrates[bitrateIndex]
		}
		if kbps == 0 {
			continue
		}
		return float64(len(data)-i) * 8 / float64(kbps*1000)
	}
	return 0
}
