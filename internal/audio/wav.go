/*
 * This file is part of Paperwork Hub (https://github.com/clerkwell/paperwork-hub).
 * Copyright (C) 2025 Clerkwell Health
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package audio

import (
	"bytes"
	"encoding/binary"
)

// WrapPCM wraps raw little-endian integer PCM samples in a WAV container
// so the transcription API can identify the format. The header matches
// what streaming clients send: uncompressed PCM, mono by default.
func WrapPCM(pcm []byte, sampleRate, bitsPerSample, channels int) []byte {
	dataSize := len(pcm)
	fileSize := 36 + dataSize
	bytesPerSample := bitsPerSample / 8
	byteRate := sampleRate * channels * bytesPerSample
	blockAlign := channels * bytesPerSample

	var buf bytes.Buffer
	buf.Grow(44 + dataSize)

	buf.WriteString("RIFF")                // ChunkID
	writeUint32(&buf, uint32(fileSize))    // ChunkSize
	buf.WriteString("WAVE")                // Format
	buf.WriteString("fmt ")                // Subchunk1ID
	writeUint32(&buf, 16)                  // Subchunk1Size (16 for PCM)
	writeUint16(&buf, 1)                   // AudioFormat (1 = integer PCM)
	writeUint16(&buf, uint16(channels))    // NumChannels
	writeUint32(&buf, uint32(sampleRate))  // SampleRate
	writeUint32(&buf, uint32(byteRate))    // ByteRate
	writeUint16(&buf, uint16(blockAlign))  // BlockAlign
	writeUint16(&buf, uint16(bitsPerSample)) // BitsPerSample
	buf.WriteString("data")                // Subchunk2ID
	writeUint32(&buf, uint32(dataSize))    // Subchunk2Size

	buf.Write(pcm)
	return buf.Bytes()
}

// PCMDuration returns the playback length in seconds of a raw PCM buffer
func PCMDuration(numBytes, sampleRate, bitsPerSample, channels int) float64 {
	bytesPerSecond := sampleRate * channels * (bitsPerSample / 8)
	if bytesPerSecond <= 0 {
		return 0
	}
	return float64(numBytes) / float64(bytesPerSecond)
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}
